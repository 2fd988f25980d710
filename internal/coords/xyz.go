package coords

import "math"

// XyzGeocentric is an Earth-centred position [meters]: the origin is the
// centre of the Earth, x points at the prime meridian, z at the north pole.
type XyzGeocentric struct {
	X, Y, Z float64
}

// XyzGeodetic is a local antenna position [meters]: the origin is the array
// centre, x points at the local meridian, z at the north celestial pole.
type XyzGeodetic struct {
	X, Y, Z float64
}

// Sub returns the baseline vector a - b.
func (a XyzGeodetic) Sub(b XyzGeodetic) XyzGeodetic {
	return XyzGeodetic{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

// ENH is a local east, north, height antenna position [meters], as recorded
// in MWA metafits files.
type ENH struct {
	E, N, H float64
}

// ToXyz converts an ENH position to local XYZ for an array at the given
// latitude.
func (enh ENH) ToXyz(latitudeRad float64) XyzGeodetic {
	sinLat, cosLat := math.Sincos(latitudeRad)
	return XyzGeodetic{
		X: -enh.N*sinLat + enh.H*cosLat,
		Y: enh.E,
		Z: enh.N*cosLat + enh.H*sinLat,
	}
}

// ToXyzMWA converts an ENH position at the MWA's latitude.
func (enh ENH) ToXyzMWA() XyzGeodetic {
	return enh.ToXyz(MWALatitudeRad)
}
