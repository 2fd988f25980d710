// Package jones provides 2x2 complex (Jones) matrix math for polarimetric
// visibilities.
//
// General-purpose linear algebra libraries cannot optimise for the 2x2 case,
// so the analytic formulas are written out directly. A Jones matrix holds the
// four instrumental polarisations in the order XX, XY, YX, YY.
package jones

import (
	"math"
	"math/cmplx"
)

// Jones is a single-precision 2x2 complex matrix. This is the atomic
// visibility unit; it is copied freely by value.
type Jones [4]complex64

// Jones64 is the double-precision counterpart, used for accumulation in
// averaging loops where f32 rounding would bite.
type Jones64 [4]complex128

// Identity returns the single-precision identity matrix.
func Identity() Jones {
	return Jones{1, 0, 0, 1}
}

// Identity64 returns the double-precision identity matrix.
func Identity64() Jones64 {
	return Jones64{1, 0, 0, 1}
}

// NaN returns a matrix with every real and imaginary part set to NaN.
// AnyNaN reports true for it.
func NaN() Jones {
	nan := complex(float32(math.NaN()), float32(math.NaN()))
	return Jones{nan, nan, nan, nan}
}

// FromFloats builds a Jones matrix from eight floats laid out
// [re0, im0, re1, im1, re2, im2, re3, im3]. This matches the raw correlator
// channel layout.
func FromFloats(f [8]float32) Jones {
	return Jones{
		complex(f[0], f[1]),
		complex(f[2], f[3]),
		complex(f[4], f[5]),
		complex(f[6], f[7]),
	}
}

// ToFloats is the inverse of FromFloats.
func (j Jones) ToFloats() [8]float32 {
	return [8]float32{
		real(j[0]), imag(j[0]),
		real(j[1]), imag(j[1]),
		real(j[2]), imag(j[2]),
		real(j[3]), imag(j[3]),
	}
}

// To64 widens to double precision.
func (j Jones) To64() Jones64 {
	return Jones64{
		complex128(j[0]),
		complex128(j[1]),
		complex128(j[2]),
		complex128(j[3]),
	}
}

// To32 narrows to single precision. Standard float narrowing, lossy.
func (j Jones64) To32() Jones {
	return Jones{
		complex64(j[0]),
		complex64(j[1]),
		complex64(j[2]),
		complex64(j[3]),
	}
}

// Add returns j + b element-wise.
func (j Jones) Add(b Jones) Jones {
	return Jones{j[0] + b[0], j[1] + b[1], j[2] + b[2], j[3] + b[3]}
}

// Sub returns j - b element-wise.
func (j Jones) Sub(b Jones) Jones {
	return Jones{j[0] - b[0], j[1] - b[1], j[2] - b[2], j[3] - b[3]}
}

// Mul returns the matrix product j * b.
func (j Jones) Mul(b Jones) Jones {
	return Jones{
		j[0]*b[0] + j[1]*b[2],
		j[0]*b[1] + j[1]*b[3],
		j[2]*b[0] + j[3]*b[2],
		j[2]*b[1] + j[3]*b[3],
	}
}

// Scale multiplies every element by the real scalar s.
func (j Jones) Scale(s float32) Jones {
	c := complex(s, 0)
	return Jones{j[0] * c, j[1] * c, j[2] * c, j[3] * c}
}

// H returns the Hermitian conjugate (conjugate transpose).
func (j Jones) H() Jones {
	return Jones{
		conj64(j[0]),
		conj64(j[2]),
		conj64(j[1]),
		conj64(j[3]),
	}
}

// MulHermitian returns j * b^H.
func (j Jones) MulHermitian(b Jones) Jones {
	return j.Mul(b.H())
}

// Inv returns the matrix inverse via the analytic 2x2 determinant formula.
// If j is singular the determinant is zero and every element of the result
// is NaN; callers must check AnyNaN rather than expect an error.
func (j Jones) Inv() Jones {
	invDet := complex64(1) / (j[0]*j[3] - j[1]*j[2])
	return Jones{
		invDet * j[3],
		-invDet * j[1],
		-invDet * j[2],
		invDet * j[0],
	}
}

// Div returns j * b^-1, again with NaN fill when b is singular.
func (j Jones) Div(b Jones) Jones {
	invDet := complex64(1) / (b[0]*b[3] - b[1]*b[2])
	return Jones{
		(j[0]*b[3] - j[1]*b[2]) * invDet,
		(j[1]*b[0] - j[0]*b[1]) * invDet,
		(j[2]*b[3] - j[3]*b[2]) * invDet,
		(j[3]*b[0] - j[2]*b[1]) * invDet,
	}
}

// AnyNaN reports whether any real or imaginary part is NaN.
func (j Jones) AnyNaN() bool {
	for _, c := range j {
		if cmplx.IsNaN(complex128(c)) {
			return true
		}
	}
	return false
}

// NormSqr returns the squared magnitude of each element.
func (j Jones) NormSqr() [4]float32 {
	var out [4]float32
	for i, c := range j {
		out[i] = real(c)*real(c) + imag(c)*imag(c)
	}
	return out
}

// AxB returns a * b. Alias kept for symmetry with the accumulator variants.
func AxB(a, b Jones) Jones {
	return a.Mul(b)
}

// AxBH returns a * b^H.
func AxBH(a, b Jones) Jones {
	return a.Mul(b.H())
}

// PlusAxB accumulates c += a * b without allocating. Used in hot gain
// application loops.
func PlusAxB(c *Jones, a, b Jones) {
	c[0] += a[0]*b[0] + a[1]*b[2]
	c[1] += a[0]*b[1] + a[1]*b[3]
	c[2] += a[2]*b[0] + a[3]*b[2]
	c[3] += a[2]*b[1] + a[3]*b[3]
}

// PlusAHxB accumulates c += a^H * b without allocating.
func PlusAHxB(c *Jones, a, b Jones) {
	c[0] += conj64(a[0])*b[0] + conj64(a[2])*b[2]
	c[1] += conj64(a[0])*b[1] + conj64(a[2])*b[3]
	c[2] += conj64(a[1])*b[0] + conj64(a[3])*b[2]
	c[3] += conj64(a[1])*b[1] + conj64(a[3])*b[3]
}

func conj64(c complex64) complex64 {
	return complex(real(c), -imag(c))
}

// Add returns j + b element-wise.
func (j Jones64) Add(b Jones64) Jones64 {
	return Jones64{j[0] + b[0], j[1] + b[1], j[2] + b[2], j[3] + b[3]}
}

// Mul returns the matrix product j * b.
func (j Jones64) Mul(b Jones64) Jones64 {
	return Jones64{
		j[0]*b[0] + j[1]*b[2],
		j[0]*b[1] + j[1]*b[3],
		j[2]*b[0] + j[3]*b[2],
		j[2]*b[1] + j[3]*b[3],
	}
}

// H returns the Hermitian conjugate.
func (j Jones64) H() Jones64 {
	return Jones64{
		cmplx.Conj(j[0]),
		cmplx.Conj(j[2]),
		cmplx.Conj(j[1]),
		cmplx.Conj(j[3]),
	}
}

// Inv returns the analytic inverse, NaN-filled when singular.
func (j Jones64) Inv() Jones64 {
	invDet := complex128(1) / (j[0]*j[3] - j[1]*j[2])
	return Jones64{
		invDet * j[3],
		-invDet * j[1],
		-invDet * j[2],
		invDet * j[0],
	}
}

// Scale multiplies every element by the real scalar s.
func (j Jones64) Scale(s float64) Jones64 {
	c := complex(s, 0)
	return Jones64{j[0] * c, j[1] * c, j[2] * c, j[3] * c}
}

// DivScalar divides every element by the real scalar s.
func (j Jones64) DivScalar(s float64) Jones64 {
	c := complex(s, 0)
	return Jones64{j[0] / c, j[1] / c, j[2] / c, j[3] / c}
}

// PlusScaled accumulates j += b * w. The workhorse of the weighted
// averaging loop.
func (j *Jones64) PlusScaled(b Jones, w float64) {
	c := complex(w, 0)
	j[0] += complex128(b[0]) * c
	j[1] += complex128(b[1]) * c
	j[2] += complex128(b[2]) * c
	j[3] += complex128(b[3]) * c
}
