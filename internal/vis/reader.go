package vis

import "errors"

// ErrNoData reports that a timestep and coarse channel combination has no
// HDU on disk. Readers return it (possibly wrapped) from ReadByBaseline;
// the selection reader flags the affected block instead of failing.
var ErrNoData = errors.New("no data for this timestep and coarse channel")

// FloatsPerChan is the number of float32 values per fine channel in a raw
// HDU buffer: four polarizations, each a (real, imaginary) pair.
const FloatsPerChan = 8

// CorrelatorReader provides access to one observation's raw correlator
// data, one HDU (timestep x coarse channel) at a time.
type CorrelatorReader interface {
	// NumBaselines is the total baseline count of the observation,
	// independent of any selection.
	NumBaselines() int

	// FineChansPerCoarse is the number of fine channels in each coarse
	// channel.
	FineChansPerCoarse() int

	// CommonTimestepIndices are the timesteps for which every provided
	// data file has visibilities, in ascending order.
	CommonTimestepIndices() []int

	// ProvidedTimestepIndices are all timesteps with any data, in
	// ascending order.
	ProvidedTimestepIndices() []int

	// CommonCoarseChanIndices are the coarse channels for which every
	// provided data file has visibilities, in ascending order.
	CommonCoarseChanIndices() []int

	// AntennaPairs maps a baseline index to its two antenna indices.
	AntennaPairs() [][2]int

	// HDUInfo describes the observation's data layout for error messages.
	HDUInfo() string

	// ReadByBaseline fills buf with the HDU for one timestep and coarse
	// channel. The buffer is ordered [baseline][fine chan][pol][re, im]
	// and must hold FloatsPerChan * FineChansPerCoarse * NumBaselines
	// values. Returns an error wrapping ErrNoData if the HDU is missing.
	ReadByBaseline(timestepIdx, coarseChanIdx int, buf []float32) error
}
