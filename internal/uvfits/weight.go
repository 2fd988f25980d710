package uvfits

// The sign of a visibility weight doubles as its flag: flagged data carries
// a negative weight, so no separate flag column is needed on disk.

// WeightFromFlag converts a flag and nominal weight magnitude into a signed
// weight.
func WeightFromFlag(flagged bool, factor float64) float32 {
	if flagged {
		return float32(-factor)
	}
	return float32(factor)
}

// IsFlagged reports whether a signed weight marks flagged data.
func IsFlagged(weight float32) bool {
	return weight <= 0
}
