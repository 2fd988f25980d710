package coords

import "math"

// UVW is a baseline vector projected towards a phase centre [meters].
type UVW struct {
	U, V, W float64
}

// UVWFromXyz projects a baseline vector through an hour angle and
// declination.
func UVWFromXyz(xyz XyzGeodetic, phaseCentre HADec) UVW {
	sinHA, cosHA := math.Sincos(phaseCentre.HA)
	sinDec, cosDec := math.Sincos(phaseCentre.Dec)
	return UVW{
		U: sinHA*xyz.X + cosHA*xyz.Y,
		V: -sinDec*cosHA*xyz.X + sinDec*sinHA*xyz.Y + cosDec*xyz.Z,
		W: cosDec*cosHA*xyz.X - cosDec*sinHA*xyz.Y + sinDec*xyz.Z,
	}
}
