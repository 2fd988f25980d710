package coords

import "mwa-uvfits/internal/astrom"

// LMN holds (l,m,n) direction cosines, dimensionless.
type LMN struct {
	L, M, N float64
}

// Dot returns 2*pi * (u*l + v*m + w*(n-1)).
func (lmn LMN) Dot(uvw UVW) float64 {
	return astrom.Tau * (uvw.U*lmn.L + uvw.V*lmn.M + uvw.W*(lmn.N-1.0))
}

// PrepareForRime subtracts 1 from n and multiplies each component by 2*pi.
// Doing these operations ahead of time saves FLOPs in the measurement
// equation's inner loop.
func (lmn LMN) PrepareForRime() LmnRime {
	return LmnRime{
		L: astrom.Tau * lmn.L,
		M: astrom.Tau * lmn.M,
		N: astrom.Tau * (lmn.N - 1.0),
	}
}

// LmnRime is a measurement-equation-ready LMN: l and m scaled by 2*pi, n
// shifted by -1 then scaled by 2*pi.
type LmnRime struct {
	L, M, N float64
}

// Dot returns the same value as LMN.Dot with the scaling already applied.
func (lr LmnRime) Dot(uvw UVW) float64 {
	return uvw.U*lr.L + uvw.V*lr.M + uvw.W*lr.N
}

// ToLMN undoes PrepareForRime.
func (lr LmnRime) ToLMN() LMN {
	return LMN{
		L: lr.L / astrom.Tau,
		M: lr.M / astrom.Tau,
		N: lr.N/astrom.Tau + 1.0,
	}
}
