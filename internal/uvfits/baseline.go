// Package uvfits writes MWA visibilities into the uvfits random-groups
// format: a primary HDU of per-baseline visibility groups followed by an
// AIPS AN antenna table.
package uvfits

// EncodeBaseline encodes an antenna pair into the uvfits baseline id. The
// miriad convention handles more than 255 antennas (up to 2048) and is
// backwards compatible with the standard uvfits convention. Antenna indices
// start at 1.
func EncodeBaseline(ant1, ant2 int) int {
	if ant2 > 255 {
		return ant1*2048 + ant2 + 65536
	}
	return ant1*256 + ant2
}

// DecodeBaseline recovers the antenna pair that formed a baseline id.
// Antenna indices start at 1.
func DecodeBaseline(bl int) (int, int) {
	if bl < 65535 {
		ant2 := bl % 256
		ant1 := (bl - ant2) / 256
		return ant1, ant2
	}
	ant2 := (bl - 65536) % 2048
	ant1 := (bl - ant2 - 65536) / 2048
	return ant1, ant2
}
