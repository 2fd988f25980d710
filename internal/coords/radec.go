package coords

import (
	"log"
	"math"

	"mwa-uvfits/internal/astrom"
)

// RADec is a right ascension and declination pair [radians].
type RADec struct {
	RA, Dec float64
}

// NewRADecDegrees makes an RADec from values in degrees.
func NewRADecDegrees(raDeg, decDeg float64) RADec {
	return RADec{RA: raDeg * math.Pi / 180.0, Dec: decDeg * math.Pi / 180.0}
}

// HADec is an hour angle and declination pair [radians].
type HADec struct {
	HA, Dec float64
}

// ToHADec converts to an hour angle at the given local sidereal time.
func (rd RADec) ToHADec(lstRad float64) HADec {
	return HADec{HA: lstRad - rd.RA, Dec: rd.Dec}
}

// RADecFromHADec converts an hour angle back to a right ascension at the
// given local sidereal time.
func RADecFromHADec(hd HADec, lstRad float64) RADec {
	return RADec{RA: lstRad - hd.HA, Dec: hd.Dec}
}

// ToLMN returns the direction cosines of rd relative to a phase centre.
//
// Derived using "Coordinate transformations" on page 388 of Synthesis
// Imaging in Radio Astronomy II.
func (rd RADec) ToLMN(phaseCentre RADec) LMN {
	dRA := rd.RA - phaseCentre.RA
	sinDRA, cosDRA := math.Sincos(dRA)
	sinDec, cosDec := math.Sincos(rd.Dec)
	pcSinDec, pcCosDec := math.Sincos(phaseCentre.Dec)
	return LMN{
		L: cosDec * sinDRA,
		M: sinDec*pcCosDec - cosDec*pcSinDec*cosDRA,
		N: sinDec*pcSinDec + cosDec*pcCosDec*cosDRA,
	}
}

// WeightedAverage returns the weighted mean position of a set of
// coordinates, or false if the set is empty. Right ascensions spanning the
// 360 degree branch cut are unwrapped before averaging.
func WeightedAverage(radecs []RADec, weights []float64) (RADec, bool) {
	var anyLow, anyMid, anyHigh bool
	for _, rd := range radecs {
		switch {
		case rd.RA >= 0 && rd.RA < math.Pi/4:
			anyLow = true
		case rd.RA >= math.Pi/4 && rd.RA < 3*math.Pi/4:
			anyMid = true
		case rd.RA >= 3*math.Pi/4 && rd.RA < astrom.Tau:
			anyHigh = true
		}
	}

	var cutoff float64
	switch {
	case !anyLow && !anyMid && !anyHigh:
		return RADec{}, false
	case anyLow && anyMid && anyHigh:
		log.Printf("warning: averaging RADec coordinates that span many RAs")
	case anyLow && anyHigh:
		// Surrounding 0 or 360.
		cutoff = math.Pi
	}

	var raSum, decSum, weightSum float64
	for i, rd := range radecs {
		ra := rd.RA
		if ra > cutoff {
			ra -= astrom.Tau
		}
		raSum += ra * weights[i]
		decSum += rd.Dec * weights[i]
		weightSum += weights[i]
	}
	avg := RADec{RA: raSum / weightSum, Dec: decSum / weightSum}
	if avg.RA < 0 {
		avg.RA += astrom.Tau
	}
	return avg, true
}
