package astrom

import "math"

// Tau is one full turn in radians.
const Tau = 2 * math.Pi

// Seconds of time to radians.
const ds2r = 7.272205216643039903827217e-5

// Arcseconds to radians.
const as2r = Tau / (360.0 * 3600.0)

// Dranrm normalizes an angle into the range [0, 2pi).
func Dranrm(angle float64) float64 {
	w := math.Mod(angle, Tau)
	if w < 0 {
		w += Tau
	}
	return w
}

// Gmst returns the Greenwich mean sidereal time in radians for a UT1 (or
// UTC, the sub-second difference is ignored here) modified Julian date,
// using the IAU 1982 expression.
func Gmst(mjdUT float64) float64 {
	tu := (mjdUT - 51544.5) / 36525.0
	return Dranrm(math.Mod(mjdUT, 1.0)*Tau +
		(24110.54841+(8640184.812866+(0.093104-6.2e-6*tu)*tu)*tu)*ds2r)
}

// Gst returns the Greenwich apparent sidereal time: GMST corrected by the
// equation of the equinoxes.
func Gst(mjdUT float64) float64 {
	t := (mjdUT - 51544.5) / 36525.0
	dpsi, deps := NutationAngles(mjdUT)
	return Dranrm(Gmst(mjdUT) + dpsi*math.Cos(obliquity(t)+deps))
}
