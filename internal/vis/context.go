package vis

import "time"

// VisContext describes the data selected for output and how it is to be
// averaged: the raw timestep/channel/baseline extents, the averaging
// factors, and the time and frequency axes needed to label the averaged
// data.
type VisContext struct {
	// Number of selected raw timesteps.
	NumSelTimesteps int

	// Timestamp of the leading edge of the first raw timestep.
	StartTimestamp time.Time

	// Raw integration time.
	IntTime time.Duration

	// Number of selected raw fine channels.
	NumSelChans int

	// Centre frequency of the first raw fine channel [Hz].
	StartFreqHz float64

	// Raw fine channel width [Hz].
	FreqResolutionHz float64

	// Selected baselines as antenna index pairs, in output row order.
	SelBaselines [][2]int

	// How many raw timesteps and channels to average per output cell.
	AvgTime int
	AvgFreq int

	// Number of visibility polarizations.
	NumVisPols int
}

// NumAvgTimesteps returns the averaged timestep count, rounding up so a
// ragged tail chunk still produces a row.
func (c *VisContext) NumAvgTimesteps() int {
	return (c.NumSelTimesteps + c.AvgTime - 1) / c.AvgTime
}

// NumAvgChans returns the averaged channel count, rounding up.
func (c *VisContext) NumAvgChans() int {
	return (c.NumSelChans + c.AvgFreq - 1) / c.AvgFreq
}

// TrivialAveraging reports whether both averaging factors are 1, in which
// case averaging degenerates to a copy.
func (c *VisContext) TrivialAveraging() bool {
	return c.AvgTime == 1 && c.AvgFreq == 1
}

// SelDims returns the expected shape of raw input arrays.
func (c *VisContext) SelDims() (int, int, int) {
	return c.NumSelTimesteps, c.NumSelChans, len(c.SelBaselines)
}

// AvgDims returns the shape of the averaged output.
func (c *VisContext) AvgDims() (int, int, int) {
	return c.NumAvgTimesteps(), c.NumAvgChans(), len(c.SelBaselines)
}

// AvgIntTime returns the averaged integration time.
func (c *VisContext) AvgIntTime() time.Duration {
	return time.Duration(c.AvgTime) * c.IntTime
}

// AvgFreqResolutionHz returns the averaged channel width [Hz].
func (c *VisContext) AvgFreqResolutionHz() float64 {
	return float64(c.AvgFreq) * c.FreqResolutionHz
}

// Timeseries returns the timestamps of each averaged timestep. With
// centroid true the timestamps sit at the centre of each averaged chunk
// rather than at its leading edge.
func (c *VisContext) Timeseries(centroid bool) []time.Time {
	n := c.NumAvgTimesteps()
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		t := c.StartTimestamp.Add(time.Duration(i) * c.AvgIntTime())
		if centroid {
			t = t.Add(c.AvgIntTime() / 2)
		}
		out[i] = t
	}
	return out
}

// FrequenciesHz returns the centre frequency of each raw fine channel.
func (c *VisContext) FrequenciesHz() []float64 {
	out := make([]float64, c.NumSelChans)
	for i := range out {
		out[i] = c.StartFreqHz + float64(i)*c.FreqResolutionHz
	}
	return out
}

// AvgFrequenciesHz returns the centre frequency of each averaged channel:
// the mean of its constituent raw channel frequencies.
func (c *VisContext) AvgFrequenciesHz() []float64 {
	raw := c.FrequenciesHz()
	out := make([]float64, 0, c.NumAvgChans())
	for start := 0; start < len(raw); start += c.AvgFreq {
		end := start + c.AvgFreq
		if end > len(raw) {
			end = len(raw)
		}
		var sum float64
		for _, f := range raw[start:end] {
			sum += f
		}
		out = append(out, sum/float64(end-start))
	}
	return out
}

// WeightFactor returns the nominal weight of one unaveraged visibility,
// proportional to the time-bandwidth product of a raw cell.
func (c *VisContext) WeightFactor() float64 {
	return c.IntTime.Seconds() * c.FreqResolutionHz / 10000.0
}
