package uvfits

import (
	"fmt"
	"log"
	"math"
	"time"

	"mwa-uvfits/internal/astrom"
	"mwa-uvfits/internal/coords"
	"mwa-uvfits/internal/fits"
	"mwa-uvfits/internal/jones"
	"mwa-uvfits/internal/version"
	"mwa-uvfits/internal/vis"
)

// Writer streams visibility rows into a uvfits file. The total row count is
// fixed when the file is created; rows are written in order and the antenna
// table can only be appended once every row is in place.
type Writer struct {
	totalNumRows   int
	currentNumRows int

	centreFreqHz float64

	startTime   time.Time
	phaseCentre coords.RADec
	arrayPos    coords.LatLngHeight

	gw *fits.GroupsWriter
}

// NewWriter creates path and writes the primary header for a random-groups
// uvfits file holding numTimesteps * numBaselines rows of numChans channels.
// centreFreqChan is the zero-indexed channel that centreFreqHz labels.
func NewWriter(
	path string,
	numTimesteps, numBaselines, numChans int,
	startTime time.Time,
	fineChanWidthHz, centreFreqHz float64,
	centreFreqChan int,
	phaseCentre coords.RADec,
	obsName string,
	arrayPos coords.LatLngHeight,
) (*Writer, error) {
	totalNumRows := numTimesteps * numBaselines
	if totalNumRows <= 0 {
		return nil, fmt.Errorf("the number of uvfits rows must be positive, got %d timesteps x %d baselines", numTimesteps, numBaselines)
	}

	// Axes are (grouped), complex, pol, chan, ra, dec.
	naxes := []int{0, 3, 4, numChans, 1, 1}
	gw, err := fits.CreateGroups(path, naxes, 5, totalNumRows)
	if err != nil {
		return nil, fmt.Errorf("failed to create uvfits file: %w", err)
	}

	gw.WriteKeyFloat("BSCALE", 1.0, "")

	// Group parameters: UVWs in seconds of light travel, the encoded
	// baseline, and the offset from the date in PZERO5.
	ptypes := []string{"UU", "VV", "WW", "BASELINE", "DATE"}
	for i, p := range ptypes {
		n := i + 1
		gw.WriteKeyString(fmt.Sprintf("PTYPE%d", n), p, "")
		gw.WriteKeyFloat(fmt.Sprintf("PSCAL%d", n), 1.0, "")
		if p == "DATE" {
			gw.WriteKeyFloat(fmt.Sprintf("PZERO%d", n), astrom.TruncatedJD(startTime), "")
		} else {
			gw.WriteKeyFloat(fmt.Sprintf("PZERO%d", n), 0.0, "")
		}
	}
	gw.WriteKeyString("DATE-OBS", truncatedDateString(startTime), "")

	gw.WriteKeyString("CTYPE2", "COMPLEX", "")
	gw.WriteKeyFloat("CRVAL2", 1.0, "")
	gw.WriteKeyFloat("CRPIX2", 1.0, "")
	gw.WriteKeyFloat("CDELT2", 1.0, "")

	// Linear polarizations XX, YY, XY, YX.
	gw.WriteKeyString("CTYPE3", "STOKES", "")
	gw.WriteKeyInt("CRVAL3", -5, "")
	gw.WriteKeyInt("CDELT3", -1, "")
	gw.WriteKeyFloat("CRPIX3", 1.0, "")

	gw.WriteKeyString("CTYPE4", "FREQ", "")
	gw.WriteKeyFloat("CRVAL4", centreFreqHz, "")
	gw.WriteKeyFloat("CDELT4", fineChanWidthHz, "")
	gw.WriteKeyInt("CRPIX4", int64(centreFreqChan)+1, "")

	raDeg := phaseCentre.RA * 180.0 / math.Pi
	decDeg := phaseCentre.Dec * 180.0 / math.Pi
	gw.WriteKeyString("CTYPE5", "RA", "")
	gw.WriteKeyFloat("CRVAL5", raDeg, "")
	gw.WriteKeyInt("CDELT5", 1, "")
	gw.WriteKeyInt("CRPIX5", 1, "")

	gw.WriteKeyString("CTYPE6", "DEC", "")
	gw.WriteKeyFloat("CRVAL6", decDeg, "")
	gw.WriteKeyInt("CDELT6", 1, "")
	gw.WriteKeyInt("CRPIX6", 1, "")

	gw.WriteKeyFloat("OBSRA", raDeg, "")
	gw.WriteKeyFloat("OBSDEC", decDeg, "")
	gw.WriteKeyFloat("EPOCH", 2000.0, "")

	if obsName == "" {
		obsName = "Undefined"
	}
	gw.WriteKeyString("OBJECT", obsName, "")
	gw.WriteKeyString("TELESCOP", "MWA", "")
	gw.WriteKeyString("INSTRUME", "MWA", "")

	// AIPS reads the weight scale from HISTORY.
	gw.WriteHistory("AIPS WTSCAL =  1.0")
	gw.WriteComment(fmt.Sprintf("Created by %s v%s", version.Name, version.Version))
	gw.WriteKeyString("SOFTWARE", version.Name, "")
	gw.WriteKeyString("GITLABEL", "v"+version.Version, "")

	return &Writer{
		totalNumRows: totalNumRows,
		centreFreqHz: centreFreqHz,
		startTime:    startTime,
		phaseCentre:  phaseCentre,
		arrayPos:     arrayPos,
		gw:           gw,
	}, nil
}

// FromContext creates a writer sized for ctx's averaged output. A nil
// arrayPos falls back to the MWA.
func FromContext(
	path string,
	ctx *vis.VisContext,
	arrayPos *coords.LatLngHeight,
	phaseCentre coords.RADec,
	obsName string,
) (*Writer, error) {
	avgFreqs := ctx.AvgFrequenciesHz()
	centreChan := len(avgFreqs) / 2
	centreFreq := avgFreqs[centreChan]

	var pos coords.LatLngHeight
	if arrayPos != nil {
		pos = *arrayPos
	} else {
		log.Printf("warning: no array position specified, assuming MWA lat lng height")
		pos = coords.NewMWA()
	}

	return NewWriter(
		path,
		ctx.NumAvgTimesteps(),
		len(ctx.SelBaselines),
		ctx.NumAvgChans(),
		ctx.StartTimestamp,
		ctx.AvgFreqResolutionHz(),
		centreFreq,
		centreChan,
		phaseCentre,
		obsName,
		pos,
	)
}

// truncatedDateString formats the observation date with the time of day
// zeroed, matching the DATE-OBS convention where PZERO5 carries the date and
// the DATE group parameter the fraction.
func truncatedDateString(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%04d-%02d-%02dT00:00:00.0", u.Year(), u.Month(), u.Day())
}

// WriteVisRow writes one row: a baseline's UVW in seconds, the encoded
// antenna pair (zero-indexed tiles), the date offset of the epoch, and the
// interleaved (real, imag, weight) visibility floats for every channel and
// polarization.
func (w *Writer) WriteVisRow(uvw coords.UVW, tile1, tile2 int, epoch time.Time, visData []float32) error {
	if w.currentNumRows+1 > w.totalNumRows {
		return BadRowNumError{RowNum: w.currentNumRows, NumRows: w.totalNumRows}
	}

	jdFrac := astrom.JulianDate(epoch) - astrom.TruncatedJD(w.startTime)

	row := make([]float32, 0, 5+len(visData))
	row = append(row,
		float32(uvw.U/coords.VelC),
		float32(uvw.V/coords.VelC),
		float32(uvw.W/coords.VelC),
		float32(EncodeBaseline(tile1+1, tile2+1)),
		float32(jdFrac),
	)
	row = append(row, visData...)

	if err := w.gw.WriteGroup(w.currentNumRows, row); err != nil {
		return err
	}
	w.currentNumRows++
	return nil
}

// WriteVis averages the selected visibilities per ctx and writes the result,
// one row per averaged timestep and baseline. Antenna positions are
// precessed to J2000 at each averaged timestep's centroid before UVWs are
// formed. Weights follow the sign-as-flag convention; fully flagged chunks
// keep their unweighted mean and a negative weight.
func (w *Writer) WriteVis(ctx *vis.VisContext, visArray *vis.Cube[jones.Jones], weights *vis.Cube[float32], tilesXyz []coords.XyzGeodetic) error {
	nt, nc, nb := ctx.SelDims()
	expected := fmt.Sprintf("(%d, %d, %d)", nt, nc, nb)
	if vt, vc, vb := visArray.Dims(); vt != nt || vc != nc || vb != nb {
		return vis.BadArrayShapeError{
			Argument: "visArray",
			Function: "Writer.WriteVis",
			Expected: expected,
			Received: visArray.DimString(),
		}
	}
	if wt, wc, wb := weights.Dims(); wt != nt || wc != nc || wb != nb {
		return vis.BadArrayShapeError{
			Argument: "weights",
			Function: "Writer.WriteVis",
			Expected: expected,
			Received: weights.DimString(),
		}
	}

	numAvgRows := ctx.NumAvgTimesteps() * len(ctx.SelBaselines)
	if w.currentNumRows+numAvgRows > w.totalNumRows {
		return BadRowNumError{RowNum: w.currentNumRows + numAvgRows - 1, NumRows: w.totalNumRows}
	}

	numAvgChans := ctx.NumAvgChans()
	trivial := ctx.TrivialAveraging()
	visTmp := make([]float32, 3*ctx.NumVisPols*numAvgChans)

	for avgT, centroid := range ctx.Timeseries(true) {
		prec := coords.PrecessTime(w.phaseCentre, centroid, w.arrayPos.LongitudeRad, w.arrayPos.LatitudeRad)
		precessed := prec.PrecessXyzParallel(tilesXyz)

		t0 := avgT * ctx.AvgTime
		t1 := t0 + ctx.AvgTime
		if t1 > nt {
			t1 = nt
		}

		for blIdx, pair := range ctx.SelBaselines {
			uvw := coords.UVWFromXyz(precessed[pair[0]].Sub(precessed[pair[1]]), prec.HADecJ2000)

			for avgC := 0; avgC < numAvgChans; avgC++ {
				ch0 := avgC * ctx.AvgFreq
				ch1 := ch0 + ctx.AvgFreq
				if ch1 > nc {
					ch1 = nc
				}

				avgJones := visArray.At(t0, ch0, blIdx)
				avgWeight := weights.At(t0, ch0, blIdx)
				if !trivial {
					avgJones, avgWeight = averageChunk(visArray, weights, t0, t1, ch0, ch1, blIdx)
				}

				// Reorder XX, XY, YX, YY into the uvfits pol order XX, YY,
				// XY, YX.
				f := avgJones.ToFloats()
				o := 3 * 4 * avgC
				visTmp[o+0], visTmp[o+1], visTmp[o+2] = f[0], f[1], avgWeight
				visTmp[o+3], visTmp[o+4], visTmp[o+5] = f[6], f[7], avgWeight
				visTmp[o+6], visTmp[o+7], visTmp[o+8] = f[2], f[3], avgWeight
				visTmp[o+9], visTmp[o+10], visTmp[o+11] = f[4], f[5], avgWeight
			}

			if err := w.WriteVisRow(uvw, pair[0], pair[1], centroid, visTmp); err != nil {
				return err
			}
		}
	}
	return nil
}

// averageChunk reduces one (time, channel) chunk of a baseline to a single
// visibility and weight. Unflagged samples are averaged weighted by their
// weights; if every sample is flagged the plain mean is kept and the summed
// weight magnitude comes back negated so the flag survives.
func averageChunk(visArray *vis.Cube[jones.Jones], weights *vis.Cube[float32], t0, t1, ch0, ch1, bl int) (jones.Jones, float32) {
	var sum jones.Jones64
	var weightSum float64
	flagged := true
	for t := t0; t < t1; t++ {
		for ch := ch0; ch < ch1; ch++ {
			w := float64(weights.At(t, ch, bl))
			if w > 0 {
				sum.PlusScaled(visArray.At(t, ch, bl), w)
				weightSum += w
				flagged = false
			}
		}
	}
	if !flagged {
		return sum.DivScalar(weightSum).To32(), float32(weightSum)
	}

	var absSum float64
	n := 0
	for t := t0; t < t1; t++ {
		for ch := ch0; ch < ch1; ch++ {
			absSum += math.Abs(float64(weights.At(t, ch, bl)))
			sum.PlusScaled(visArray.At(t, ch, bl), 1.0)
			n++
		}
	}
	return sum.DivScalar(float64(n)).To32(), float32(-absSum)
}
