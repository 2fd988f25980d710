package astrom

import "math"

// Vec3 is a Cartesian direction or velocity vector.
type Vec3 [3]float64

// Mat3 is a 3x3 rotation matrix, row-major.
type Mat3 [3][3]float64

// SphToCart converts spherical coordinates (longitude, latitude in radians)
// to a unit direction vector.
func SphToCart(lng, lat float64) Vec3 {
	cosLat := math.Cos(lat)
	return Vec3{
		cosLat * math.Cos(lng),
		cosLat * math.Sin(lng),
		math.Sin(lat),
	}
}

// CartToSph converts a direction vector back to spherical coordinates. The
// vector need not be normalized. A zero x/y projection yields longitude 0.
func CartToSph(v Vec3) (lng, lat float64) {
	r := math.Hypot(v[0], v[1])
	if r != 0 {
		lng = math.Atan2(v[1], v[0])
	}
	if v[2] != 0 {
		lat = math.Atan2(v[2], r)
	}
	return lng, lat
}

// Normalize returns the unit vector and original magnitude of v. A zero
// vector comes back unchanged with magnitude 0.
func Normalize(v Vec3) (Vec3, float64) {
	m := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if m == 0 {
		return v, 0
	}
	return Vec3{v[0] / m, v[1] / m, v[2] / m}, m
}

// Dot returns the scalar product of two vectors.
func Dot(a, b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// MulVec applies the rotation m to v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// Mul returns the matrix product m * b.
func (m Mat3) Mul(b Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*b[0][j] + m[i][1]*b[1][j] + m[i][2]*b[2][j]
		}
	}
	return out
}

// Transpose returns the transpose of m. For a rotation this is the inverse.
func (m Mat3) Transpose() Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Frame rotations about each axis: these rotate the coordinate frame by the
// given angle, so v' = R(a).MulVec(v) expresses v in the rotated frame.

func rotX(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{1, 0, 0}, {0, c, s}, {0, -s, c}}
}

func rotY(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{c, 0, -s}, {0, 1, 0}, {s, 0, c}}
}

func rotZ(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{c, s, 0}, {-s, c, 0}, {0, 0, 1}}
}
