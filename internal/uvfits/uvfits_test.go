package uvfits

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mwa-uvfits/internal/coords"
	"mwa-uvfits/internal/fits"
	"mwa-uvfits/internal/jones"
	"mwa-uvfits/internal/vis"
)

func TestBaselineRoundTrip(t *testing.T) {
	// Baseline ids are only unambiguous for ordered pairs with ant2 below
	// 2048; at 2048 the extended encoding collides with the next ant1.
	for ant1 := 1; ant1 <= 2047; ant1 += 13 {
		for _, ant2 := range []int{1, 128, 255, 256, 257, 1024, 2047} {
			if ant2 < ant1 {
				continue
			}
			bl := EncodeBaseline(ant1, ant2)
			got1, got2 := DecodeBaseline(bl)
			if got1 != ant1 || got2 != ant2 {
				t.Fatalf("baseline (%d, %d) decoded as (%d, %d)", ant1, ant2, got1, got2)
			}
		}
	}
}

func TestBaselineConventionBoundary(t *testing.T) {
	// Up to 255 antennas the standard convention applies.
	if got := EncodeBaseline(1, 255); got != 511 {
		t.Errorf("expected 511, got %d", got)
	}
	// Beyond that the miriad extension kicks in.
	if got := EncodeBaseline(1, 256); got != 1*2048+256+65536 {
		t.Errorf("expected %d, got %d", 1*2048+256+65536, got)
	}
}

func TestWeightFlags(t *testing.T) {
	if w := WeightFromFlag(false, 2.0); w != 2.0 || IsFlagged(w) {
		t.Errorf("unflagged weight wrong: %v", w)
	}
	if w := WeightFromFlag(true, 2.0); w != -2.0 || !IsFlagged(w) {
		t.Errorf("flagged weight wrong: %v", w)
	}
	if !IsFlagged(0.0) {
		t.Error("zero weight should count as flagged")
	}
}

func testJones(re float32) jones.Jones {
	return jones.FromFloats([8]float32{re, 1, re + 1, 2, re + 2, 3, re + 3, 4})
}

func TestAverageChunkUnflagged(t *testing.T) {
	visArray := vis.NewCube[jones.Jones](2, 2, 1)
	weights := vis.NewCube[float32](2, 2, 1)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			visArray.Set(i, j, 0, testJones(float32(2*i+j)))
			weights.Set(i, j, 0, 1.0)
		}
	}
	avg, wgt := averageChunk(visArray, weights, 0, 2, 0, 2, 0)
	if wgt != 4.0 {
		t.Errorf("expected weight 4, got %v", wgt)
	}
	// Equal weights: the mean of reals 0..3 is 1.5.
	if got := real(avg[0]); math.Abs(float64(got)-1.5) > 1e-6 {
		t.Errorf("expected mean 1.5, got %v", got)
	}
}

func TestAverageChunkWeighted(t *testing.T) {
	visArray := vis.NewCube[jones.Jones](1, 2, 1)
	weights := vis.NewCube[float32](1, 2, 1)
	visArray.Set(0, 0, 0, testJones(1))
	visArray.Set(0, 1, 0, testJones(5))
	weights.Set(0, 0, 0, 3.0)
	weights.Set(0, 1, 0, 1.0)
	avg, wgt := averageChunk(visArray, weights, 0, 1, 0, 2, 0)
	if wgt != 4.0 {
		t.Errorf("expected weight 4, got %v", wgt)
	}
	// (3*1 + 1*5) / 4 = 2.
	if got := real(avg[0]); math.Abs(float64(got)-2.0) > 1e-6 {
		t.Errorf("expected weighted mean 2, got %v", got)
	}
}

func TestAverageChunkIgnoresFlagged(t *testing.T) {
	visArray := vis.NewCube[jones.Jones](1, 2, 1)
	weights := vis.NewCube[float32](1, 2, 1)
	visArray.Set(0, 0, 0, testJones(1))
	visArray.Set(0, 1, 0, testJones(100))
	weights.Set(0, 0, 0, 2.0)
	weights.Set(0, 1, 0, -2.0)
	avg, wgt := averageChunk(visArray, weights, 0, 1, 0, 2, 0)
	if wgt != 2.0 {
		t.Errorf("expected weight 2, got %v", wgt)
	}
	if got := real(avg[0]); math.Abs(float64(got)-1.0) > 1e-6 {
		t.Errorf("flagged sample leaked into the average: %v", got)
	}
}

func TestAverageChunkAllFlagged(t *testing.T) {
	visArray := vis.NewCube[jones.Jones](1, 2, 1)
	weights := vis.NewCube[float32](1, 2, 1)
	visArray.Set(0, 0, 0, testJones(1))
	visArray.Set(0, 1, 0, testJones(3))
	weights.Set(0, 0, 0, -2.0)
	weights.Set(0, 1, 0, -1.0)
	avg, wgt := averageChunk(visArray, weights, 0, 1, 0, 2, 0)
	if wgt != -3.0 {
		t.Errorf("expected weight -3, got %v", wgt)
	}
	// All flagged: keep the plain mean.
	if got := real(avg[0]); math.Abs(float64(got)-2.0) > 1e-6 {
		t.Errorf("expected plain mean 2, got %v", got)
	}
}

func newTestWriter(t *testing.T, dir string, numTimesteps, numBaselines, numChans int) *Writer {
	t.Helper()
	w, err := NewWriter(
		filepath.Join(dir, "test.uvfits"),
		numTimesteps, numBaselines, numChans,
		time.Date(2019, time.November, 22, 2, 22, 22, 0, time.UTC),
		40000.0, 150e6, numChans/2,
		coords.NewRADecDegrees(10.0, -26.7),
		"testobs",
		coords.NewMWA(),
	)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	return w
}

func TestWriterRefusesEmptyFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "uvfits_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	_, err = NewWriter(
		filepath.Join(tmpDir, "empty.uvfits"),
		0, 3, 2,
		time.Now(),
		40000.0, 150e6, 1,
		coords.RADec{},
		"",
		coords.NewMWA(),
	)
	if err == nil {
		t.Fatal("expected an error for zero rows")
	}
}

func TestWriterRowStateMachine(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "uvfits_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	w := newTestWriter(t, tmpDir, 1, 2, 1)
	epoch := w.startTime

	names := []string{"Tile1", "Tile2"}
	positions := []coords.XyzGeodetic{{}, {X: 1}}

	// Antenna table before any rows.
	err = w.WriteAntennaTable(names, positions)
	var notEnough NotEnoughRowsWrittenError
	if !errors.As(err, &notEnough) {
		t.Fatalf("expected NotEnoughRowsWrittenError, got %v", err)
	}
	if notEnough.Current != 0 || notEnough.Total != 2 {
		t.Errorf("unexpected counts: %+v", notEnough)
	}

	visData := make([]float32, 12)
	for i := 0; i < 2; i++ {
		if err := w.WriteVisRow(coords.UVW{}, 0, 1, epoch, visData); err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
	}

	// One row too many.
	err = w.WriteVisRow(coords.UVW{}, 0, 1, epoch, visData)
	var badRow BadRowNumError
	if !errors.As(err, &badRow) {
		t.Fatalf("expected BadRowNumError, got %v", err)
	}

	if err := w.WriteAntennaTable(names, positions); err != nil {
		t.Fatalf("failed to write antenna table: %v", err)
	}
}

func TestWriterEndToEnd(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "uvfits_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	numChans := 2
	w := newTestWriter(t, tmpDir, 1, 3, numChans)

	pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	epoch := w.startTime.Add(time.Second)
	for row, pair := range pairs {
		visData := make([]float32, 12*numChans)
		for i := range visData {
			visData[i] = float32(100*row + i)
		}
		if err := w.WriteVisRow(coords.UVW{U: 1, V: 2, W: 3}, pair[0], pair[1], epoch, visData); err != nil {
			t.Fatalf("failed to write row %d: %v", row, err)
		}
	}

	names := []string{"Tile1", "Tile2", "Tile3"}
	positions := []coords.XyzGeodetic{
		{},
		{X: 1, Y: 2, Z: 3},
		{X: 2, Y: 4, Z: 6},
	}
	if err := w.WriteAntennaTable(names, positions); err != nil {
		t.Fatalf("failed to write antenna table: %v", err)
	}

	f, err := fits.Open(filepath.Join(tmpDir, "test.uvfits"))
	if err != nil {
		t.Fatalf("failed to reopen file: %v", err)
	}
	defer f.Close()

	if len(f.HDUs) != 2 {
		t.Fatalf("expected 2 HDUs, got %d", len(f.HDUs))
	}

	prim := f.Primary()
	if v, err := prim.Header.Int("GCOUNT"); err != nil || v != 3 {
		t.Errorf("GCOUNT = %d (%v), want 3", v, err)
	}
	if v, err := prim.Header.Int("PCOUNT"); err != nil || v != 5 {
		t.Errorf("PCOUNT = %d (%v), want 5", v, err)
	}
	if v, err := prim.Header.Str("OBJECT"); err != nil || v != "testobs" {
		t.Errorf("OBJECT = %q (%v), want testobs", v, err)
	}
	if v, err := prim.Header.Str("DATE-OBS"); err != nil || v != "2019-11-22T00:00:00.0" {
		t.Errorf("DATE-OBS = %q (%v)", v, err)
	}
	if v, err := prim.Header.Float("CRVAL4"); err != nil || v != 150e6 {
		t.Errorf("CRVAL4 = %v (%v), want 150e6", v, err)
	}

	// Second row: baseline (0, 2) encodes antennas 1 and 3.
	group, err := f.ReadGroup(prim, 1)
	if err != nil {
		t.Fatalf("failed to read group: %v", err)
	}
	if len(group) != 5+12*numChans {
		t.Fatalf("group has %d floats, want %d", len(group), 5+12*numChans)
	}
	if got := int(group[3]); got != EncodeBaseline(1, 3) {
		t.Errorf("baseline = %d, want %d", got, EncodeBaseline(1, 3))
	}
	if got := group[0] * coords.VelC; math.Abs(float64(got)-1.0) > 1e-6 {
		t.Errorf("UU = %v s, want 1 m of light travel", got)
	}
	// Epoch is one second past midnight plus the 02:22:22 start offset.
	wantFrac := (2.0*3600.0 + 22.0*60.0 + 23.0) / 86400.0
	if got := float64(group[4]); math.Abs(got-wantFrac) > 1e-6 {
		t.Errorf("DATE = %v, want %v", got, wantFrac)
	}
	if got := group[5]; got != 100.0 {
		t.Errorf("first vis float = %v, want 100", got)
	}

	an := f.HDUs[1]
	if v, err := an.Header.Str("EXTNAME"); err != nil || v != "AIPS AN" {
		t.Errorf("EXTNAME = %q (%v)", v, err)
	}
	if v, err := an.Header.Int("NAXIS2"); err != nil || v != 3 {
		t.Errorf("NAXIS2 = %d (%v), want 3", v, err)
	}
	if v, err := an.Header.Str("ARRNAM"); err != nil || v != "MWA" {
		t.Errorf("ARRNAM = %q (%v)", v, err)
	}
	if v, err := an.Header.Float("IATUTC"); err != nil || v != 33.0 {
		t.Errorf("IATUTC = %v (%v)", v, err)
	}

	for i, want := range names {
		got, err := f.ReadCellString(an, i, 0)
		if err != nil || got != want {
			t.Errorf("ANNAME[%d] = %q (%v), want %q", i, got, err, want)
		}
		nosta, err := f.ReadCellInt32(an, i, 2)
		if err != nil || nosta != int32(i)+1 {
			t.Errorf("NOSTA[%d] = %d (%v)", i, nosta, err)
		}
	}
	xyz, err := f.ReadCellDoubles(an, 1, 1)
	if err != nil {
		t.Fatalf("failed to read STABXYZ: %v", err)
	}
	if xyz[0] != 1 || xyz[1] != 2 || xyz[2] != 3 {
		t.Errorf("STABXYZ[1] = %v", xyz)
	}
	polab, err := f.ReadCellFloats(an, 0, 9)
	if err != nil || len(polab) != 1 || polab[0] != 90.0 {
		t.Errorf("POLAB = %v (%v), want 90", polab, err)
	}
}

func TestWriteVisTrivial(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "uvfits_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := &vis.VisContext{
		NumSelTimesteps:  1,
		StartTimestamp:   time.Date(2019, time.November, 22, 2, 22, 22, 0, time.UTC),
		IntTime:          2 * time.Second,
		NumSelChans:      2,
		StartFreqHz:      150e6,
		FreqResolutionHz: 40000.0,
		SelBaselines:     [][2]int{{0, 1}, {0, 2}, {1, 2}},
		AvgTime:          1,
		AvgFreq:          1,
		NumVisPols:       4,
	}

	path := filepath.Join(tmpDir, "ctx.uvfits")
	w, err := FromContext(path, ctx, nil, coords.NewRADecDegrees(10.0, -26.7), "testobs")
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	nt, nc, nb := ctx.SelDims()
	visArray := vis.NewCube[jones.Jones](nt, nc, nb)
	weights := vis.NewCube[float32](nt, nc, nb)
	for ch := 0; ch < nc; ch++ {
		for bl := 0; bl < nb; bl++ {
			visArray.Set(0, ch, bl, testJones(float32(10*ch+bl)))
			weights.Set(0, ch, bl, 1.0)
		}
	}

	enh := []coords.ENH{
		{E: 0, N: 0, H: 0},
		{E: 100, N: 0, H: 0},
		{E: 0, N: 100, H: 0},
	}
	tilesXyz := make([]coords.XyzGeodetic, len(enh))
	for i, e := range enh {
		tilesXyz[i] = e.ToXyzMWA()
	}

	if err := w.WriteVis(ctx, visArray, weights, tilesXyz); err != nil {
		t.Fatalf("failed to write visibilities: %v", err)
	}
	if err := w.WriteAntennaTable([]string{"Tile1", "Tile2", "Tile3"}, tilesXyz); err != nil {
		t.Fatalf("failed to write antenna table: %v", err)
	}

	f, err := fits.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen file: %v", err)
	}
	defer f.Close()

	prim := f.Primary()
	if v, err := prim.Header.Int("GCOUNT"); err != nil || v != 3 {
		t.Fatalf("GCOUNT = %d (%v), want 3", v, err)
	}

	// Trivial averaging copies the input through.
	group, err := f.ReadGroup(prim, 0)
	if err != nil {
		t.Fatalf("failed to read group: %v", err)
	}
	want := testJones(0).ToFloats()
	if group[5] != want[0] || group[6] != want[1] {
		t.Errorf("XX = (%v, %v), want (%v, %v)", group[5], group[6], want[0], want[1])
	}
	// YY lands in the second pol slot.
	if group[8] != want[6] || group[9] != want[7] {
		t.Errorf("YY = (%v, %v), want (%v, %v)", group[8], group[9], want[6], want[7])
	}
	if group[7] != 1.0 {
		t.Errorf("weight = %v, want 1", group[7])
	}

	// The baseline between co-located reference tile and a 100 m east tile
	// has a ~100 m UVW magnitude.
	mag := math.Sqrt(float64(group[0]*group[0]+group[1]*group[1]+group[2]*group[2])) * coords.VelC
	if math.Abs(mag-100.0) > 1.0 {
		t.Errorf("UVW magnitude = %v m, want ~100", mag)
	}
}

func TestWriteVisShapeMismatch(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "uvfits_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := &vis.VisContext{
		NumSelTimesteps:  2,
		StartTimestamp:   time.Date(2019, time.November, 22, 2, 22, 22, 0, time.UTC),
		IntTime:          2 * time.Second,
		NumSelChans:      2,
		StartFreqHz:      150e6,
		FreqResolutionHz: 40000.0,
		SelBaselines:     [][2]int{{0, 1}},
		AvgTime:          2,
		AvgFreq:          2,
		NumVisPols:       4,
	}

	w, err := FromContext(filepath.Join(tmpDir, "bad.uvfits"), ctx, nil, coords.RADec{}, "")
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	visArray := vis.NewCube[jones.Jones](1, 2, 1)
	weights := vis.NewCube[float32](2, 2, 1)
	err = w.WriteVis(ctx, visArray, weights, []coords.XyzGeodetic{{}, {X: 1}})
	var shapeErr vis.BadArrayShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected BadArrayShapeError, got %v", err)
	}
	if shapeErr.Argument != "visArray" {
		t.Errorf("wrong argument: %+v", shapeErr)
	}
}

func TestWriteVisAveraged(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "uvfits_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := &vis.VisContext{
		NumSelTimesteps:  2,
		StartTimestamp:   time.Date(2019, time.November, 22, 2, 22, 22, 0, time.UTC),
		IntTime:          2 * time.Second,
		NumSelChans:      2,
		StartFreqHz:      150e6,
		FreqResolutionHz: 40000.0,
		SelBaselines:     [][2]int{{0, 1}},
		AvgTime:          2,
		AvgFreq:          2,
		NumVisPols:       4,
	}

	path := filepath.Join(tmpDir, "avg.uvfits")
	w, err := FromContext(path, ctx, nil, coords.NewRADecDegrees(10.0, -26.7), "")
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	// Four samples with reals 0, 1, 2, 3 and unit weights average to 1.5.
	visArray := vis.NewCube[jones.Jones](2, 2, 1)
	weights := vis.NewCube[float32](2, 2, 1)
	v := float32(0)
	for ts := 0; ts < 2; ts++ {
		for ch := 0; ch < 2; ch++ {
			visArray.Set(ts, ch, 0, testJones(v))
			weights.Set(ts, ch, 0, 1.0)
			v++
		}
	}

	tilesXyz := []coords.XyzGeodetic{{}, {X: 10, Y: 20, Z: 30}}
	if err := w.WriteVis(ctx, visArray, weights, tilesXyz); err != nil {
		t.Fatalf("failed to write visibilities: %v", err)
	}
	if err := w.WriteAntennaTable([]string{"Tile1", "Tile2"}, tilesXyz); err != nil {
		t.Fatalf("failed to write antenna table: %v", err)
	}

	f, err := fits.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen file: %v", err)
	}
	defer f.Close()

	prim := f.Primary()
	if v, err := prim.Header.Int("GCOUNT"); err != nil || v != 1 {
		t.Fatalf("GCOUNT = %d (%v), want 1", v, err)
	}
	if v, err := prim.Header.Int("NAXIS4"); err != nil || v != 1 {
		t.Fatalf("NAXIS4 = %d (%v), want 1 averaged channel", v, err)
	}

	group, err := f.ReadGroup(prim, 0)
	if err != nil {
		t.Fatalf("failed to read group: %v", err)
	}
	if got := float64(group[5]); math.Abs(got-1.5) > 1e-6 {
		t.Errorf("averaged XX real = %v, want 1.5", got)
	}
	if got := group[7]; got != 4.0 {
		t.Errorf("averaged weight = %v, want 4", got)
	}

	// The averaged timestep is stamped at the chunk centroid, 2 s in.
	startFrac := (2.0*3600.0 + 22.0*60.0 + 22.0) / 86400.0
	wantFrac := startFrac + 2.0/86400.0
	if got := float64(group[4]); math.Abs(got-wantFrac) > 1e-6 {
		t.Errorf("DATE = %v, want %v", got, wantFrac)
	}
}
