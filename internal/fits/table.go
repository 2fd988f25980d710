package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column describes one field of a binary table: a name, a TFORM repeat and
// type code (e.g. "8A", "3D", "1J"), and a unit string which may be empty.
type Column struct {
	Name string
	Form string
	Unit string
}

// formBytes returns the byte width of a TFORM field.
func formBytes(form string) (int, error) {
	if form == "" {
		return 0, fmt.Errorf("empty TFORM")
	}
	repeat := 1
	i := 0
	for i < len(form) && form[i] >= '0' && form[i] <= '9' {
		i++
	}
	if i > 0 {
		var err error
		repeat, err = strconv.Atoi(form[:i])
		if err != nil {
			return 0, err
		}
	}
	if i >= len(form) {
		return 0, fmt.Errorf("TFORM %q has no type code", form)
	}
	var size int
	switch form[i] {
	case 'A', 'L', 'B':
		size = 1
	case 'I':
		size = 2
	case 'J', 'E':
		size = 4
	case 'K', 'D':
		size = 8
	default:
		return 0, fmt.Errorf("unsupported TFORM type %q", form[i])
	}
	return repeat * size, nil
}

// TableWriter writes a binary table extension appended after a
// random-groups HDU. The row count is fixed at creation; cells are written
// individually by (row, column) and unwritten cells remain zero.
type TableWriter struct {
	f          *os.File
	cols       []Column
	colOffsets []int
	rowBytes   int
	numRows    int
	cards      []string
	dataStart  int64
	hduStart   int64
}

// AppendTable finishes the groups HDU and starts a binary table extension
// with the given name, columns and row count.
func (w *GroupsWriter) AppendTable(extName string, numRows int, cols []Column) (*TableWriter, error) {
	if err := w.finishData(); err != nil {
		return nil, err
	}
	hduStart, err := w.f.Seek(0, 1)
	if err != nil {
		return nil, err
	}

	t := &TableWriter{
		f:        w.f,
		cols:     cols,
		numRows:  numRows,
		hduStart: hduStart,
	}
	for _, col := range cols {
		n, err := formBytes(col.Form)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		t.colOffsets = append(t.colOffsets, t.rowBytes)
		t.rowBytes += n
	}

	t.cards = append(t.cards,
		stringCard("XTENSION", "BINTABLE", "binary table extension"),
		intCard("BITPIX", 8, "array data type"),
		intCard("NAXIS", 2, "number of array dimensions"),
		intCard("NAXIS1", int64(t.rowBytes), "length of each row in bytes"),
		intCard("NAXIS2", int64(numRows), "number of rows"),
		intCard("PCOUNT", 0, ""),
		intCard("GCOUNT", 1, ""),
		intCard("TFIELDS", int64(len(cols)), "number of fields"),
	)
	for i, col := range cols {
		n := i + 1
		t.cards = append(t.cards,
			stringCard(fmt.Sprintf("TTYPE%d", n), col.Name, ""),
			stringCard(fmt.Sprintf("TFORM%d", n), col.Form, ""),
		)
		if col.Unit != "" {
			t.cards = append(t.cards, stringCard(fmt.Sprintf("TUNIT%d", n), col.Unit, ""))
		}
	}
	t.cards = append(t.cards, stringCard("EXTNAME", extName, "extension name"))
	return t, nil
}

// WriteKeyInt appends an integer key to the table header.
func (t *TableWriter) WriteKeyInt(name string, v int64, comment string) {
	t.cards = append(t.cards, intCard(name, v, comment))
}

// WriteKeyFloat appends a floating-point key to the table header.
func (t *TableWriter) WriteKeyFloat(name string, v float64, comment string) {
	t.cards = append(t.cards, floatCard(name, v, comment))
}

// WriteKeyString appends a string key to the table header.
func (t *TableWriter) WriteKeyString(name, v, comment string) {
	t.cards = append(t.cards, stringCard(name, v, comment))
}

func (t *TableWriter) flushHeader() error {
	if t.dataStart != 0 {
		return nil
	}
	var buf []byte
	for _, c := range t.cards {
		buf = append(buf, c...)
	}
	buf = append(buf, textCard("END", "")...)
	for len(buf)%BlockSize != 0 {
		buf = append(buf, ' ')
	}
	if _, err := t.f.WriteAt(buf, t.hduStart); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}
	t.dataStart = t.hduStart + int64(len(buf))
	// Zero the whole data unit up front so unwritten cells and the block
	// padding are well defined.
	dataBytes := int64(t.rowBytes) * int64(t.numRows)
	padded := (dataBytes + BlockSize - 1) / BlockSize * BlockSize
	if _, err := t.f.WriteAt(make([]byte, padded), t.dataStart); err != nil {
		return fmt.Errorf("failed to zero table data: %w", err)
	}
	return nil
}

func (t *TableWriter) cellAt(row, col int) (int64, error) {
	if err := t.flushHeader(); err != nil {
		return 0, err
	}
	if row < 0 || row >= t.numRows {
		return 0, fmt.Errorf("row %d out of range [0, %d)", row, t.numRows)
	}
	if col < 0 || col >= len(t.cols) {
		return 0, fmt.Errorf("column %d out of range [0, %d)", col, len(t.cols))
	}
	return t.dataStart + int64(row)*int64(t.rowBytes) + int64(t.colOffsets[col]), nil
}

// WriteCellString writes an ASCII cell, space-padded to the column width.
func (t *TableWriter) WriteCellString(row, col int, s string) error {
	off, err := t.cellAt(row, col)
	if err != nil {
		return err
	}
	width, _ := formBytes(t.cols[col].Form)
	if len(s) > width {
		s = s[:width]
	}
	s += strings.Repeat(" ", width-len(s))
	_, err = t.f.WriteAt([]byte(s), off)
	return err
}

// WriteCellDoubles writes a vector of float64 values into a D column.
func (t *TableWriter) WriteCellDoubles(row, col int, vals []float64) error {
	off, err := t.cellAt(row, col)
	if err != nil {
		return err
	}
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	_, err = t.f.WriteAt(buf, off)
	return err
}

// WriteCellInt32 writes a J column cell.
func (t *TableWriter) WriteCellInt32(row, col int, v int32) error {
	off, err := t.cellAt(row, col)
	if err != nil {
		return err
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err = t.f.WriteAt(buf[:], off)
	return err
}

// WriteCellFloats writes one or more float32 values into an E column.
func (t *TableWriter) WriteCellFloats(row, col int, vals []float32) error {
	off, err := t.cellAt(row, col)
	if err != nil {
		return err
	}
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	_, err = t.f.WriteAt(buf, off)
	return err
}

// Close flushes the table header if no cell forced it out and closes the
// underlying file.
func (t *TableWriter) Close() error {
	if err := t.flushHeader(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}
