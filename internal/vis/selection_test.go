package vis

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

// fakeReader serves synthetic correlator data: each HDU float encodes its
// own (timestep, coarse chan, baseline, float index) so reads can be
// checked positionally.
type fakeReader struct {
	numBaselines int
	finePerCoar  int
	common       []int
	provided     []int
	coarse       []int
	missing      map[[2]int]bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		numBaselines: 3,
		finePerCoar:  2,
		common:       []int{0, 1, 2},
		provided:     []int{0, 1, 2, 3},
		coarse:       []int{0, 1},
		missing:      map[[2]int]bool{},
	}
}

func (f *fakeReader) NumBaselines() int { return f.numBaselines }

func (f *fakeReader) FineChansPerCoarse() int { return f.finePerCoar }

func (f *fakeReader) CommonTimestepIndices() []int { return f.common }

func (f *fakeReader) ProvidedTimestepIndices() []int { return f.provided }

func (f *fakeReader) CommonCoarseChanIndices() []int { return f.coarse }

func (f *fakeReader) HDUInfo() string { return "fake observation" }

func (f *fakeReader) AntennaPairs() [][2]int {
	return [][2]int{{0, 1}, {0, 2}, {1, 2}}
}

func (f *fakeReader) ReadByBaseline(ts, cc int, buf []float32) error {
	if f.missing[[2]int{ts, cc}] {
		return fmt.Errorf("hdu (%d, %d): %w", ts, cc, ErrNoData)
	}
	i := 0
	for bl := 0; bl < f.numBaselines; bl++ {
		for ch := 0; ch < f.finePerCoar; ch++ {
			for p := 0; p < FloatsPerChan; p++ {
				buf[i] = float32(ts*10000 + cc*1000 + bl*100 + ch*10 + p)
				i++
			}
		}
	}
	return nil
}

func TestNewSelection(t *testing.T) {
	sel, err := NewSelection(newFakeReader())
	if err != nil {
		t.Fatal(err)
	}
	if sel.TimestepRange != (Range{Start: 0, End: 4}) {
		t.Errorf("timestep range = %+v", sel.TimestepRange)
	}
	if sel.CoarseChanRange != (Range{Start: 0, End: 2}) {
		t.Errorf("coarse chan range = %+v", sel.CoarseChanRange)
	}
	if len(sel.BaselineIdxs) != 3 {
		t.Errorf("baseline idxs = %v", sel.BaselineIdxs)
	}
}

func TestNewSelectionNoTimesteps(t *testing.T) {
	r := newFakeReader()
	r.provided = nil
	var noProvided NoProvidedTimestepsError
	if _, err := NewSelection(r); !errors.As(err, &noProvided) {
		t.Fatalf("got %v, want NoProvidedTimestepsError", err)
	}

	r = newFakeReader()
	r.common = nil
	var noCommon NoCommonTimestepsError
	if _, err := NewSelection(r); !errors.As(err, &noCommon) {
		t.Fatalf("got %v, want NoCommonTimestepsError", err)
	}
}

func TestGetShapeAndEstimate(t *testing.T) {
	sel := VisSelection{
		TimestepRange:   Range{Start: 0, End: 2},
		CoarseChanRange: Range{Start: 0, End: 3},
		BaselineIdxs:    []int{0, 1, 2, 3},
	}
	nt, nc, nb := sel.GetShape(32)
	if nt != 2 || nc != 96 || nb != 4 {
		t.Fatalf("shape = (%d, %d, %d)", nt, nc, nb)
	}
	if got := sel.EstimateBytesBest(32); got != 2*96*4*37 {
		t.Fatalf("estimate = %d, want %d", got, 2*96*4*37)
	}
}

func TestAllocateRefusesHugeSelections(t *testing.T) {
	sel := VisSelection{
		TimestepRange:   Range{Start: 0, End: 1 << 20},
		CoarseChanRange: Range{Start: 0, End: 1 << 10},
		BaselineIdxs:    make([]int, 8256),
	}
	var insufficient InsufficientMemoryError
	if _, err := sel.AllocateJones(128); !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientMemoryError", err)
	}
	if insufficient.NeedGiB == 0 {
		t.Fatal("NeedGiB should be non-zero for a huge selection")
	}
}

func TestReadShapeMismatch(t *testing.T) {
	r := newFakeReader()
	sel, err := NewSelection(r)
	if err != nil {
		t.Fatal(err)
	}
	badVis, err := sel.AllocateJones(1) // wrong fine chan count
	if err != nil {
		t.Fatal(err)
	}
	flags, err := sel.AllocateFlags(r.FineChansPerCoarse())
	if err != nil {
		t.Fatal(err)
	}
	var badShape BadArrayShapeError
	if err := sel.Read(r, badVis, flags); !errors.As(err, &badShape) {
		t.Fatalf("got %v, want BadArrayShapeError", err)
	}
	if badShape.Argument != "visArray" {
		t.Fatalf("argument = %q", badShape.Argument)
	}
}

func TestRead(t *testing.T) {
	r := newFakeReader()
	sel, err := NewSelection(r)
	if err != nil {
		t.Fatal(err)
	}
	visArray, err := sel.AllocateJones(r.FineChansPerCoarse())
	if err != nil {
		t.Fatal(err)
	}
	flags, err := sel.AllocateFlags(r.FineChansPerCoarse())
	if err != nil {
		t.Fatal(err)
	}
	if err := sel.Read(r, visArray, flags); err != nil {
		t.Fatal(err)
	}

	// ts 2, coarse chan 1 fine chan 1 (global chan 3), baseline 2.
	j := visArray.At(2, 3, 2)
	wantBase := float32(2*10000 + 1*1000 + 2*100 + 1*10)
	if real(j[0]) != wantBase || imag(j[0]) != wantBase+1 {
		t.Fatalf("pol XX = %v, want (%v, %v)", j[0], wantBase, wantBase+1)
	}
	if real(j[3]) != wantBase+6 || imag(j[3]) != wantBase+7 {
		t.Fatalf("pol YY = %v", j[3])
	}
	for _, f := range flags.Data() {
		if f {
			t.Fatal("no flags expected for a complete observation")
		}
	}
}

func TestReadFlagsMissingHDUs(t *testing.T) {
	r := newFakeReader()
	r.missing[[2]int{1, 1}] = true
	sel, err := NewSelection(r)
	if err != nil {
		t.Fatal(err)
	}
	visArray, _ := sel.AllocateJones(r.FineChansPerCoarse())
	flags, _ := sel.AllocateFlags(r.FineChansPerCoarse())
	if err := sel.Read(r, visArray, flags); err != nil {
		t.Fatal(err)
	}

	// The missing HDU covers ts 1, global chans 2-3, all baselines.
	for ch := 2; ch < 4; ch++ {
		for bl := 0; bl < 3; bl++ {
			if !flags.At(1, ch, bl) {
				t.Fatalf("ts 1 chan %d baseline %d should be flagged", ch, bl)
			}
		}
	}
	// Neighbouring blocks are untouched.
	if flags.At(1, 0, 0) || flags.At(0, 2, 0) || flags.At(2, 2, 0) {
		t.Fatal("flags leaked outside the missing HDU's block")
	}
	j := visArray.At(0, 2, 0)
	if real(j[0]) != 1000 {
		t.Fatalf("ts 0 chan 2 baseline 0 = %v", j[0])
	}
}

func TestReadPropagatesOtherErrors(t *testing.T) {
	r := &errReader{fakeReader: newFakeReader()}
	sel, err := NewSelection(r)
	if err != nil {
		t.Fatal(err)
	}
	visArray, _ := sel.AllocateJones(r.FineChansPerCoarse())
	flags, _ := sel.AllocateFlags(r.FineChansPerCoarse())
	if err := sel.Read(r, visArray, flags); err == nil {
		t.Fatal("expected a read error to propagate")
	}
}

type errReader struct {
	*fakeReader
}

func (e *errReader) ReadByBaseline(ts, cc int, buf []float32) error {
	if ts == 2 && cc == 0 {
		return errors.New("disk on fire")
	}
	return e.fakeReader.ReadByBaseline(ts, cc, buf)
}

func TestContextAveraging(t *testing.T) {
	ctx := VisContext{
		NumSelTimesteps:  5,
		StartTimestamp:   time.Date(2021, time.February, 16, 16, 0, 15, 0, time.UTC),
		IntTime:          2 * time.Second,
		NumSelChans:      6,
		StartFreqHz:      150e6,
		FreqResolutionHz: 40e3,
		SelBaselines:     [][2]int{{0, 1}, {0, 2}},
		AvgTime:          2,
		AvgFreq:          4,
		NumVisPols:       4,
	}

	if got := ctx.NumAvgTimesteps(); got != 3 {
		t.Errorf("NumAvgTimesteps = %d, want 3", got)
	}
	if got := ctx.NumAvgChans(); got != 2 {
		t.Errorf("NumAvgChans = %d, want 2", got)
	}
	if ctx.TrivialAveraging() {
		t.Error("averaging factors (2, 4) should not be trivial")
	}

	ts := ctx.Timeseries(true)
	if len(ts) != 3 {
		t.Fatalf("timeseries length = %d", len(ts))
	}
	// First chunk spans raw timesteps 0-1: its centroid is two seconds in.
	want := ctx.StartTimestamp.Add(2 * time.Second)
	if !ts[0].Equal(want) {
		t.Errorf("centroid 0 = %v, want %v", ts[0], want)
	}
	if got := ts[1].Sub(ts[0]); got != 4*time.Second {
		t.Errorf("centroid spacing = %v, want 4s", got)
	}

	freqs := ctx.AvgFrequenciesHz()
	if len(freqs) != 2 {
		t.Fatalf("avg frequencies = %v", freqs)
	}
	// First chunk averages channels 0-3: 150e6 + mean(0,1,2,3)*40e3.
	if math.Abs(freqs[0]-(150e6+1.5*40e3)) > 1e-6 {
		t.Errorf("avg freq 0 = %v", freqs[0])
	}
	// The ragged last chunk holds channels 4-5.
	if math.Abs(freqs[1]-(150e6+4.5*40e3)) > 1e-6 {
		t.Errorf("avg freq 1 = %v", freqs[1])
	}
}

func TestContextTrivial(t *testing.T) {
	ctx := VisContext{
		NumSelTimesteps:  2,
		StartTimestamp:   time.Unix(0, 0).UTC(),
		IntTime:          time.Second,
		NumSelChans:      3,
		StartFreqHz:      100e6,
		FreqResolutionHz: 10e3,
		SelBaselines:     [][2]int{{0, 1}},
		AvgTime:          1,
		AvgFreq:          1,
		NumVisPols:       4,
	}
	if !ctx.TrivialAveraging() {
		t.Error("factors (1, 1) should be trivial")
	}
	nt, nc, nb := ctx.AvgDims()
	st, sc, sb := ctx.SelDims()
	if nt != st || nc != sc || nb != sb {
		t.Error("trivial averaging should preserve dimensions")
	}
	ts := ctx.Timeseries(true)
	want := ctx.StartTimestamp.Add(500 * time.Millisecond)
	if !ts[0].Equal(want) {
		t.Errorf("trivial centroid 0 = %v, want %v", ts[0], want)
	}
}
