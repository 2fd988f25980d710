// Package coords provides the positional types used throughout the
// visibility pipeline: geodetic and geocentric antenna positions, sky
// coordinates, direction cosines and baseline UVWs.
package coords

import (
	"fmt"
	"math"
)

// MWA array reference position.
const (
	MWALongitudeDeg = 116.67081524
	MWALatitudeDeg  = -26.703319405555554
	MWAHeightM      = 377.827
)

// MWALongitudeRad and MWALatitudeRad are the array position in radians.
var (
	MWALongitudeRad = MWALongitudeDeg * math.Pi / 180.0
	MWALatitudeRad  = MWALatitudeDeg * math.Pi / 180.0
)

// VelC is the speed of light in a vacuum [m/s].
const VelC = 299792458.0

// Ellipsoid selects a reference ellipsoid for geodetic conversions.
type Ellipsoid int

const (
	WGS84 Ellipsoid = iota + 1
	GRS80
	WGS72
)

// params returns the equatorial radius [m] and flattening of the ellipsoid.
func (e Ellipsoid) params() (a, f float64) {
	switch e {
	case GRS80:
		return 6378137.0, 1.0 / 298.257222101
	case WGS72:
		return 6378135.0, 1.0 / 298.26
	default:
		return 6378137.0, 1.0 / 298.257223563
	}
}

// LatLngHeight is a geodetic position: longitude and latitude in radians
// (east positive), height above the ellipsoid in meters.
type LatLngHeight struct {
	LongitudeRad float64
	LatitudeRad  float64
	HeightM      float64
}

// NewMWA returns the MWA array position.
func NewMWA() LatLngHeight {
	return LatLngHeight{
		LongitudeRad: MWALongitudeRad,
		LatitudeRad:  MWALatitudeRad,
		HeightM:      MWAHeightM,
	}
}

// ToGeocentric converts the geodetic position to geocentric XYZ on the
// given reference ellipsoid.
func (p LatLngHeight) ToGeocentric(e Ellipsoid) XyzGeocentric {
	a, f := e.params()
	e2 := 2.0*f - f*f

	sinLat := math.Sin(p.LatitudeRad)
	cosLat := math.Cos(p.LatitudeRad)
	n := a / math.Sqrt(1.0-e2*sinLat*sinLat)

	return XyzGeocentric{
		X: (n + p.HeightM) * cosLat * math.Cos(p.LongitudeRad),
		Y: (n + p.HeightM) * cosLat * math.Sin(p.LongitudeRad),
		Z: (n*(1.0-e2) + p.HeightM) * sinLat,
	}
}

// ToGeocentricWGS84 converts via the default WGS84 ellipsoid.
func (p LatLngHeight) ToGeocentricWGS84() XyzGeocentric {
	return p.ToGeocentric(WGS84)
}

func (p LatLngHeight) String() string {
	return fmt.Sprintf("{ longitude: %.4f°, latitude: %.4f°, height: %vm }",
		p.LongitudeRad*180.0/math.Pi, p.LatitudeRad*180.0/math.Pi, p.HeightM)
}
