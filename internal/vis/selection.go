package vis

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"mwa-uvfits/internal/jones"
)

// Per-element cost of a selection: a 4-pol complex64 Jones matrix, a
// float32 weight and a bool flag.
const bytesPerElem = 32 + 4 + 1

// Range is a half-open index range [Start, End).
type Range struct {
	Start, End int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// VisSelection chooses a subset of an observation: a contiguous range of
// timestep indices, a contiguous range of coarse channel indices, and an
// arbitrary set of baseline indices.
//
// Observations can be too large to fit in memory, so a selection enables
// processing in chunks. Non-contiguous timesteps or coarse channels should
// be handled as separate selections.
type VisSelection struct {
	TimestepRange   Range
	CoarseChanRange Range
	BaselineIdxs    []int
}

// NewSelection builds the default selection for an observation: timesteps
// from the first common to the last provided, only common coarse channels,
// and every baseline.
func NewSelection(r CorrelatorReader) (VisSelection, error) {
	common := r.CommonTimestepIndices()
	provided := r.ProvidedTimestepIndices()
	if len(provided) == 0 {
		return VisSelection{}, NoProvidedTimestepsError{HDUInfo: r.HDUInfo()}
	}
	if len(common) == 0 || common[0] > provided[len(provided)-1] {
		return VisSelection{}, NoCommonTimestepsError{HDUInfo: r.HDUInfo()}
	}

	commonChans := r.CommonCoarseChanIndices()
	if len(commonChans) == 0 {
		return VisSelection{}, NoCommonTimestepsError{HDUInfo: r.HDUInfo()}
	}

	baselines := make([]int, r.NumBaselines())
	for i := range baselines {
		baselines[i] = i
	}

	return VisSelection{
		TimestepRange:   Range{Start: common[0], End: provided[len(provided)-1] + 1},
		CoarseChanRange: Range{Start: commonChans[0], End: commonChans[len(commonChans)-1] + 1},
		BaselineIdxs:    baselines,
	}, nil
}

// AntPairs returns the antenna index pairs of the selected baselines.
func (s *VisSelection) AntPairs(r CorrelatorReader) [][2]int {
	all := r.AntennaPairs()
	pairs := make([][2]int, len(s.BaselineIdxs))
	for i, idx := range s.BaselineIdxs {
		pairs[i] = all[idx]
	}
	return pairs
}

// GetShape returns the (timestep, channel, baseline) dimensions of the
// arrays this selection needs.
func (s *VisSelection) GetShape(fineChansPerCoarse int) (int, int, int) {
	return s.TimestepRange.Len(),
		s.CoarseChanRange.Len() * fineChansPerCoarse,
		len(s.BaselineIdxs)
}

// EstimateBytesBest estimates the memory in bytes needed to store the whole
// selection without redundant polarizations.
func (s *VisSelection) EstimateBytesBest(fineChansPerCoarse int) uint64 {
	nt, nc, nb := s.GetShape(fineChansPerCoarse)
	return uint64(nt) * uint64(nc) * uint64(nb) * bytesPerElem
}

// checkFits refuses allocations for selections that cannot fit in physical
// memory. The reported figure covers the whole selection, not just the one
// array being allocated.
func (s *VisSelection) checkFits(fineChansPerCoarse int) error {
	need := s.EstimateBytesBest(fineChansPerCoarse)
	if need > totalMemoryBytes() {
		return InsufficientMemoryError{NeedGiB: need / (1 << 30)}
	}
	return nil
}

// AllocateJones allocates a zeroed visibility cube for the selection.
func (s *VisSelection) AllocateJones(fineChansPerCoarse int) (*Cube[jones.Jones], error) {
	if err := s.checkFits(fineChansPerCoarse); err != nil {
		return nil, err
	}
	nt, nc, nb := s.GetShape(fineChansPerCoarse)
	return NewCube[jones.Jones](nt, nc, nb), nil
}

// AllocateFlags allocates a cleared flag cube for the selection.
func (s *VisSelection) AllocateFlags(fineChansPerCoarse int) (*Cube[bool], error) {
	if err := s.checkFits(fineChansPerCoarse); err != nil {
		return nil, err
	}
	nt, nc, nb := s.GetShape(fineChansPerCoarse)
	return NewCube[bool](nt, nc, nb), nil
}

// AllocateWeights allocates a zeroed weight cube for the selection.
func (s *VisSelection) AllocateWeights(fineChansPerCoarse int) (*Cube[float32], error) {
	if err := s.checkFits(fineChansPerCoarse); err != nil {
		return nil, err
	}
	nt, nc, nb := s.GetShape(fineChansPerCoarse)
	return NewCube[float32](nt, nc, nb), nil
}

// Read fills the visibility cube with the selection's data, flagging any
// block whose HDU is missing. Coarse channels are read concurrently; each
// one owns a disjoint channel range of the output arrays.
func (s *VisSelection) Read(r CorrelatorReader, visArray *Cube[jones.Jones], flagArray *Cube[bool]) error {
	fineChansPerCoarse := r.FineChansPerCoarse()
	nt, nc, nb := s.GetShape(fineChansPerCoarse)
	shape := fmt.Sprintf("(%d, %d, %d)", nt, nc, nb)

	if jt, jc, jb := visArray.Dims(); jt != nt || jc != nc || jb != nb {
		return BadArrayShapeError{
			Argument: "visArray",
			Function: "VisSelection.Read",
			Expected: shape,
			Received: visArray.DimString(),
		}
	}
	if ft, fc, fb := flagArray.Dims(); ft != nt || fc != nc || fb != nb {
		return BadArrayShapeError{
			Argument: "flagArray",
			Function: "VisSelection.Read",
			Expected: shape,
			Received: flagArray.DimString(),
		}
	}

	floatsPerBaseline := FloatsPerChan * fineChansPerCoarse
	floatsPerHDU := floatsPerBaseline * r.NumBaselines()

	numCoarse := s.CoarseChanRange.Len()
	chanJobs := make(chan int, numCoarse)
	errs := make(chan error, numCoarse)

	workers := runtime.NumCPU()
	if workers > numCoarse {
		workers = numCoarse
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]float32, floatsPerHDU)
			for coarseOffset := range chanJobs {
				if err := s.readCoarseChan(r, visArray, flagArray, coarseOffset, buf); err != nil {
					errs <- err
				}
			}
		}()
	}
	for i := 0; i < numCoarse; i++ {
		chanJobs <- i
	}
	close(chanJobs)
	wg.Wait()
	close(errs)
	return <-errs
}

// readCoarseChan reads every selected timestep of one coarse channel into
// the arrays. coarseOffset is relative to the start of the coarse channel
// range; buf holds one HDU.
func (s *VisSelection) readCoarseChan(r CorrelatorReader, visArray *Cube[jones.Jones], flagArray *Cube[bool], coarseOffset int, buf []float32) error {
	fineChansPerCoarse := r.FineChansPerCoarse()
	floatsPerBaseline := FloatsPerChan * fineChansPerCoarse
	coarseChanIdx := s.CoarseChanRange.Start + coarseOffset
	chanBase := coarseOffset * fineChansPerCoarse

	for t := 0; t < s.TimestepRange.Len(); t++ {
		timestepIdx := s.TimestepRange.Start + t
		err := r.ReadByBaseline(timestepIdx, coarseChanIdx, buf)
		switch {
		case err == nil:
			for b, baselineIdx := range s.BaselineIdxs {
				chunk := buf[baselineIdx*floatsPerBaseline : (baselineIdx+1)*floatsPerBaseline]
				for ch := 0; ch < fineChansPerCoarse; ch++ {
					j := jones.FromFloats([8]float32{
						chunk[ch*FloatsPerChan+0], chunk[ch*FloatsPerChan+1],
						chunk[ch*FloatsPerChan+2], chunk[ch*FloatsPerChan+3],
						chunk[ch*FloatsPerChan+4], chunk[ch*FloatsPerChan+5],
						chunk[ch*FloatsPerChan+6], chunk[ch*FloatsPerChan+7],
					})
					visArray.Set(t, chanBase+ch, b, j)
				}
			}
		case errors.Is(err, ErrNoData):
			log.Printf("warning: flagging missing HDU @ ts=%d, cc=%d", timestepIdx, coarseChanIdx)
			flagArray.FillChans(t, chanBase, chanBase+fineChansPerCoarse, true)
		default:
			return err
		}
	}
	return nil
}
