package coords

import (
	"math"
	"runtime"
	"sync"
	"time"

	"mwa-uvfits/internal/astrom"
)

// PrecessionInfo carries the per-epoch state needed to express an
// observation in the J2000 frame: the precession-nutation rotation, the
// phase centre as a J2000 hour angle, the sidereal times of both frames and
// the precessed array latitude. Build one per timestep with PrecessTime and
// consume it immediately.
type PrecessionInfo struct {
	rotationMatrix astrom.Mat3

	// The precessed phase centre in the J2000 epoch.
	HADecJ2000 HADec

	// The LMST of the current epoch.
	LMST float64

	// The precessed LMST in the J2000 epoch.
	LMSTJ2000 float64

	// The precessed array latitude in the J2000 epoch.
	ArrayLatitudeJ2000 float64
}

// LMST returns the local mean sidereal time [radians] for a UTC instant at
// the given array longitude.
func LMST(t time.Time, arrayLongitudeRad float64) float64 {
	gmst := astrom.Gmst(astrom.MJD(t))
	return math.Mod(gmst+arrayLongitudeRad, astrom.Tau)
}

// PrecessTime computes the rotation from the mean J2000 frame to the true
// frame of the given instant, aberrates the phase centre, and precesses the
// array's zenith so antenna positions and UVWs can be expressed in J2000.
func PrecessTime(phaseCentre RADec, t time.Time, arrayLongitudeRad, arrayLatitudeRad float64) PrecessionInfo {
	mjd := astrom.MJD(t)

	// Nutation is handled here, so the LMST and not the apparent sidereal
	// time feeds the rotation.
	lmst := LMST(t, arrayLongitudeRad)

	aberrated := aberrateRADec(phaseCentre, mjd)
	rmat := astrom.PrenutMatrix(mjd).Transpose()

	lmstJ2000, latJ2000 := rotateRADec(rmat, lmst, arrayLatitudeRad)

	return PrecessionInfo{
		rotationMatrix: rmat,
		HADecJ2000: HADec{
			HA:  astrom.Dranrm(lmstJ2000 - aberrated.RA),
			Dec: aberrated.Dec,
		},
		LMST:               lmst,
		LMSTJ2000:          lmstJ2000,
		ArrayLatitudeJ2000: latJ2000,
	}
}

// PrecessXyzParallel applies the precession rotation to a batch of antenna
// positions: rotate into a frame with the x axis at zero RA at the current
// epoch, apply the rotation matrix, rotate back out at the J2000 LMST. Each
// antenna is independent, so the batch is spread over a worker pool.
func (p *PrecessionInfo) PrecessXyzParallel(xyzs []XyzGeodetic) []XyzGeodetic {
	out := make([]XyzGeodetic, len(xyzs))

	sep, cep := math.Sincos(p.LMST)
	s2000, c2000 := math.Sincos(p.LMSTJ2000)
	rmat := p.rotationMatrix

	jobs := make(chan int, len(xyzs))
	var wg sync.WaitGroup
	for w := 0; w < runtime.NumCPU(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				xyz := xyzs[i]
				xpr := cep*xyz.X - sep*xyz.Y
				ypr := sep*xyz.X + cep*xyz.Y
				zpr := xyz.Z

				xpr2 := rmat[0][0]*xpr + rmat[0][1]*ypr + rmat[0][2]*zpr
				ypr2 := rmat[1][0]*xpr + rmat[1][1]*ypr + rmat[1][2]*zpr
				zpr2 := rmat[2][0]*xpr + rmat[2][1]*ypr + rmat[2][2]*zpr

				out[i] = XyzGeodetic{
					X: c2000*xpr2 + s2000*ypr2,
					Y: -s2000*xpr2 + c2000*ypr2,
					Z: zpr2,
				}
			}
		}()
	}
	for i := range xyzs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func aberrateRADec(rd RADec, mjd float64) RADec {
	v := astrom.SphToCart(rd.RA, rd.Dec)
	v = astrom.Aberrate(v, mjd)
	ra, dec := astrom.CartToSph(v)
	return RADec{RA: astrom.Dranrm(ra), Dec: dec}
}

func rotateRADec(rmat astrom.Mat3, ra, dec float64) (float64, float64) {
	v := rmat.MulVec(astrom.SphToCart(ra, dec))
	ra2, dec2 := astrom.CartToSph(v)
	return astrom.Dranrm(ra2), dec2
}
