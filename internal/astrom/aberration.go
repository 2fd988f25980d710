package astrom

import "math"

// Annual aberration constant, radians (20.49552 arcsec).
const aberrationConst = 9.93669e-5

// EarthVelocity returns the Earth's orbital velocity in units of c,
// equatorial J2000-ish frame, from a low-precision solar ephemeris. Good to
// a few hundredths of an arcsecond of aberration, which is all the
// precession pipeline needs.
func EarthVelocity(mjd float64) Vec3 {
	n := mjd - 51544.5
	t := n / 36525.0
	d2r := math.Pi / 180.0

	l := (280.460 + 0.9856474*n) * d2r
	g := (357.528 + 0.9856003*n) * d2r
	lambda := l + (1.915*math.Sin(g)+0.020*math.Sin(2*g))*d2r

	e := 0.016709 - 0.000042*t
	perigee := (282.9373 + 0.32327*t) * d2r

	vx := aberrationConst * (math.Sin(lambda) + e*math.Sin(perigee))
	vyEcl := -aberrationConst * (math.Cos(lambda) + e*math.Cos(perigee))

	eps := obliquity(t)
	return Vec3{vx, vyEcl * math.Cos(eps), vyEcl * math.Sin(eps)}
}

// Aberrate applies annual aberration to a direction vector for the given
// epoch: project the Earth velocity onto the direction, shift, renormalize.
func Aberrate(v Vec3, mjd float64) Vec3 {
	abv := EarthVelocity(mjd)
	ab1 := math.Sqrt(1.0 - Dot(abv, abv))

	v1n, _ := Normalize(v)
	w := 1.0 + Dot(v1n, abv)/(ab1+1.0)

	shifted := Vec3{
		ab1*v1n[0] + w*abv[0],
		ab1*v1n[1] + w*abv[1],
		ab1*v1n[2] + w*abv[2],
	}
	out, _ := Normalize(shifted)
	return out
}
