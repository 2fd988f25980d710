package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// GroupsWriter writes a random-groups primary HDU: a header describing the
// group layout, then GCOUNT fixed-length groups of big-endian float32
// values. The group count is fixed at creation, so groups can be written in
// any order by seeking.
type GroupsWriter struct {
	f     *os.File
	naxes []int
	// Floats per group: the group parameters plus the data axes product.
	groupLen  int
	pcount    int
	gcount    int
	cards     []string
	dataStart int64
	scratch   []byte
}

// CreateGroups creates path and begins a random-groups primary HDU.
// naxes is the full FITS axis list including the leading zero that marks a
// groups file; pcount is the number of group parameters preceding each
// group's data; gcount is the total number of groups.
func CreateGroups(path string, naxes []int, pcount, gcount int) (*GroupsWriter, error) {
	if len(naxes) == 0 || naxes[0] != 0 {
		return nil, fmt.Errorf("random groups files need a leading zero axis, got %v", naxes)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	dataLen := 1
	for _, n := range naxes[1:] {
		dataLen *= n
	}

	w := &GroupsWriter{
		f:        f,
		naxes:    naxes,
		groupLen: pcount + dataLen,
		pcount:   pcount,
		gcount:   gcount,
		scratch:  make([]byte, 4*(pcount+dataLen)),
	}

	w.cards = append(w.cards,
		logicalCard("SIMPLE", true, "conforms to FITS standard"),
		intCard("BITPIX", -32, "array data type"),
		intCard("NAXIS", int64(len(naxes)), "number of array dimensions"),
	)
	for i, n := range naxes {
		w.cards = append(w.cards, intCard(fmt.Sprintf("NAXIS%d", i+1), int64(n), ""))
	}
	w.cards = append(w.cards,
		logicalCard("EXTEND", true, ""),
		logicalCard("GROUPS", true, ""),
		intCard("PCOUNT", int64(pcount), "number of group parameters"),
		intCard("GCOUNT", int64(gcount), "number of groups"),
	)
	return w, nil
}

// WriteKeyInt appends an integer key to the header. Keys can only be
// written before the first group.
func (w *GroupsWriter) WriteKeyInt(name string, v int64, comment string) {
	w.cards = append(w.cards, intCard(name, v, comment))
}

// WriteKeyFloat appends a floating-point key to the header.
func (w *GroupsWriter) WriteKeyFloat(name string, v float64, comment string) {
	w.cards = append(w.cards, floatCard(name, v, comment))
}

// WriteKeyString appends a string key to the header.
func (w *GroupsWriter) WriteKeyString(name, v, comment string) {
	w.cards = append(w.cards, stringCard(name, v, comment))
}

// WriteHistory appends a HISTORY card.
func (w *GroupsWriter) WriteHistory(text string) {
	w.cards = append(w.cards, textCard("HISTORY", text))
}

// WriteComment appends a COMMENT card.
func (w *GroupsWriter) WriteComment(text string) {
	w.cards = append(w.cards, textCard("COMMENT", text))
}

// headerDone reports whether the header has been flushed to disk.
func (w *GroupsWriter) headerDone() bool {
	return w.dataStart != 0
}

// flushHeader writes the buffered header cards, END, and block padding.
// The first group write triggers this; keys written afterwards are lost, so
// callers must finish the header first.
func (w *GroupsWriter) flushHeader() error {
	if w.headerDone() {
		return nil
	}
	var buf []byte
	for _, c := range w.cards {
		buf = append(buf, c...)
	}
	buf = append(buf, textCard("END", "")...)
	for len(buf)%BlockSize != 0 {
		buf = append(buf, ' ')
	}
	if _, err := w.f.Write(buf); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	w.dataStart = int64(len(buf))
	return nil
}

// WriteGroup writes one group at the given index. data must hold exactly
// the group parameters followed by the group's data values.
func (w *GroupsWriter) WriteGroup(idx int, data []float32) error {
	if len(data) != w.groupLen {
		return fmt.Errorf("group has %d floats, want %d", len(data), w.groupLen)
	}
	if idx < 0 || idx >= w.gcount {
		return fmt.Errorf("group index %d out of range [0, %d)", idx, w.gcount)
	}
	if err := w.flushHeader(); err != nil {
		return err
	}
	for i, v := range data {
		binary.BigEndian.PutUint32(w.scratch[4*i:], math.Float32bits(v))
	}
	if _, err := w.f.WriteAt(w.scratch, w.dataStart+int64(idx)*int64(4*w.groupLen)); err != nil {
		return fmt.Errorf("failed to write group %d: %w", idx, err)
	}
	return nil
}

// finishData pads the group data to a block boundary and positions the file
// for an appended extension.
func (w *GroupsWriter) finishData() error {
	if err := w.flushHeader(); err != nil {
		return err
	}
	dataBytes := int64(w.gcount) * int64(4*w.groupLen)
	end := w.dataStart + dataBytes
	pad := (BlockSize - end%BlockSize) % BlockSize
	if pad > 0 {
		if _, err := w.f.WriteAt(make([]byte, pad), end); err != nil {
			return fmt.Errorf("failed to pad data: %w", err)
		}
	}
	if _, err := w.f.Seek(end+pad, 0); err != nil {
		return err
	}
	return nil
}

// Close pads the final HDU and closes the file.
func (w *GroupsWriter) Close() error {
	if err := w.finishData(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
