package uvfits

import (
	"fmt"
	"math"

	"mwa-uvfits/internal/astrom"
	"mwa-uvfits/internal/coords"
	"mwa-uvfits/internal/fits"
)

// WriteAntennaTable appends the AIPS AN binary table with one row per tile
// and closes the file. It can only be called after every visibility row has
// been written. positions are geodetic XYZ relative to the array centre.
func (w *Writer) WriteAntennaTable(names []string, positions []coords.XyzGeodetic) error {
	if w.currentNumRows != w.totalNumRows {
		return NotEnoughRowsWrittenError{Current: w.currentNumRows, Total: w.totalNumRows}
	}
	if len(names) != len(positions) {
		return fmt.Errorf("got %d antenna names but %d positions", len(names), len(positions))
	}

	cols := []fits.Column{
		{Name: "ANNAME", Form: "8A"},
		{Name: "STABXYZ", Form: "3D", Unit: "METERS"},
		{Name: "NOSTA", Form: "1J"},
		{Name: "MNTSTA", Form: "1J"},
		{Name: "STAXOF", Form: "1E", Unit: "METERS"},
		{Name: "POLTYA", Form: "1A"},
		{Name: "POLAA", Form: "1E", Unit: "DEGREES"},
		{Name: "POLCALA", Form: "3E"},
		{Name: "POLTYB", Form: "1A"},
		{Name: "POLAB", Form: "1E", Unit: "DEGREES"},
		{Name: "POLCALB", Form: "3E"},
	}
	tw, err := w.gw.AppendTable("AIPS AN", len(names), cols)
	if err != nil {
		return fmt.Errorf("failed to start antenna table: %w", err)
	}

	arrayXyz := w.arrayPos.ToGeocentricWGS84()
	tw.WriteKeyFloat("ARRAYX", arrayXyz.X, "")
	tw.WriteKeyFloat("ARRAYY", arrayXyz.Y, "")
	tw.WriteKeyFloat("ARRAYZ", arrayXyz.Z, "")
	tw.WriteKeyFloat("FREQ", w.centreFreqHz, "")
	tw.WriteKeyString("FRAME", "ITRF", "")

	// Apparent sidereal time of the observation date's midnight UT.
	mjd0 := math.Floor(astrom.MJD(w.startTime))
	tw.WriteKeyFloat("GSTIA0", astrom.Gst(mjd0)*180.0/math.Pi, "")
	tw.WriteKeyFloat("DEGPDY", 3.60985e2, "")
	tw.WriteKeyString("RDATE", truncatedDateString(w.startTime), "")
	tw.WriteKeyFloat("POLARX", 0.0, "")
	tw.WriteKeyFloat("POLARY", 0.0, "")
	tw.WriteKeyFloat("UT1UTC", 0.0, "")
	tw.WriteKeyFloat("DATUTC", 0.0, "")
	tw.WriteKeyString("TIMSYS", "UTC", "")
	tw.WriteKeyString("TIMESYS", "UTC", "")
	tw.WriteKeyString("ARRNAM", "MWA", "")
	tw.WriteKeyInt("NUMORB", 0, "")
	tw.WriteKeyInt("NOPCAL", 3, "")
	tw.WriteKeyInt("FREQID", -1, "")
	tw.WriteKeyFloat("IATUTC", 33.0, "")
	tw.WriteKeyInt("EXTVER", 1, "")
	tw.WriteKeyInt("NO_IF", 1, "")
	tw.WriteKeyString("XYZHAND", "RIGHT", "")

	zeros := []float32{0.0, 0.0, 0.0}
	for i, name := range names {
		p := positions[i]
		if err := tw.WriteCellString(i, 0, name); err != nil {
			return err
		}
		if err := tw.WriteCellDoubles(i, 1, []float64{p.X, p.Y, p.Z}); err != nil {
			return err
		}
		if err := tw.WriteCellInt32(i, 2, int32(i)+1); err != nil {
			return err
		}
		if err := tw.WriteCellInt32(i, 3, 0); err != nil {
			return err
		}
		if err := tw.WriteCellString(i, 5, "X"); err != nil {
			return err
		}
		if err := tw.WriteCellFloats(i, 6, []float32{0.0}); err != nil {
			return err
		}
		if err := tw.WriteCellFloats(i, 7, zeros); err != nil {
			return err
		}
		if err := tw.WriteCellString(i, 8, "Y"); err != nil {
			return err
		}
		if err := tw.WriteCellFloats(i, 9, []float32{90.0}); err != nil {
			return err
		}
		if err := tw.WriteCellFloats(i, 10, zeros); err != nil {
			return err
		}
	}

	return tw.Close()
}
