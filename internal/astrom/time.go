// Package astrom provides the astrometry kernel used by the coordinate and
// precession layers: time-scale conversion, sidereal time, the
// bias-precession-nutation rotation, annual aberration and small 3-vector
// helpers.
//
// Everything operates on float64 radians and modified Julian dates. The
// routines mirror the contracts of the usual PAL/SLALIB set (Gmst, Dranrm,
// Dcs2c and friends) so the coordinate layer can treat them as opaque
// numeric functions.
package astrom

import "time"

// MJD0 is the Julian date of MJD zero.
const MJD0 = 2400000.5

var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// leapSecond records a UTC instant at which the GPS-UTC offset changed, and
// the offset in effect from that instant.
type leapSecond struct {
	when   time.Time
	offset float64 // GPS-UTC seconds
}

// GPS-UTC offsets since the GPS epoch. GPS time does not observe leap
// seconds, so the offset grows by one at each insertion.
var leapSeconds = []leapSecond{
	{time.Date(1981, time.July, 1, 0, 0, 0, 0, time.UTC), 1},
	{time.Date(1982, time.July, 1, 0, 0, 0, 0, time.UTC), 2},
	{time.Date(1983, time.July, 1, 0, 0, 0, 0, time.UTC), 3},
	{time.Date(1985, time.July, 1, 0, 0, 0, 0, time.UTC), 4},
	{time.Date(1988, time.January, 1, 0, 0, 0, 0, time.UTC), 5},
	{time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC), 6},
	{time.Date(1991, time.January, 1, 0, 0, 0, 0, time.UTC), 7},
	{time.Date(1992, time.July, 1, 0, 0, 0, 0, time.UTC), 8},
	{time.Date(1993, time.July, 1, 0, 0, 0, 0, time.UTC), 9},
	{time.Date(1994, time.July, 1, 0, 0, 0, 0, time.UTC), 10},
	{time.Date(1996, time.January, 1, 0, 0, 0, 0, time.UTC), 11},
	{time.Date(1997, time.July, 1, 0, 0, 0, 0, time.UTC), 12},
	{time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC), 13},
	{time.Date(2006, time.January, 1, 0, 0, 0, 0, time.UTC), 14},
	{time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC), 15},
	{time.Date(2012, time.July, 1, 0, 0, 0, 0, time.UTC), 16},
	{time.Date(2015, time.July, 1, 0, 0, 0, 0, time.UTC), 17},
	{time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC), 18},
}

// gpsAtBoundary returns the GPS-seconds reading at the instant a new offset
// takes effect.
func gpsAtBoundary(ls leapSecond) float64 {
	return ls.when.Sub(gpsEpoch).Seconds() + ls.offset
}

// FromGPSSeconds converts a GPS-seconds timestamp (seconds since the GPS
// epoch, 1980-01-06T00:00:00 UTC, as used in MWA observation IDs) to a UTC
// time.Time.
func FromGPSSeconds(gps float64) time.Time {
	var offset float64
	for _, ls := range leapSeconds {
		if gps >= gpsAtBoundary(ls) {
			offset = ls.offset
		}
	}
	utc := gps - offset
	sec := int64(utc)
	nsec := int64((utc - float64(sec)) * 1e9)
	return gpsEpoch.Add(time.Duration(sec)*time.Second + time.Duration(nsec)*time.Nanosecond)
}

// JulianDate returns the Julian date of t (UTC).
func JulianDate(t time.Time) float64 {
	return float64(t.UnixNano())/1e9/86400.0 + 2440587.5
}

// MJD returns the modified Julian date of t (UTC).
func MJD(t time.Time) float64 {
	return JulianDate(t) - MJD0
}

// TruncatedJD returns the Julian date of the preceding midday boundary,
// floor(JD) + 0.5. The uvfits DATE group parameter is an offset from this.
func TruncatedJD(t time.Time) float64 {
	jd := JulianDate(t)
	return float64(int64(jd)) + 0.5
}
