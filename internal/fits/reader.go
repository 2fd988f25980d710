package fits

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Header is one HDU's parsed cards, keyed by name with original order
// preserved for repeated commentary cards.
type Header struct {
	names  []string
	values map[string]string
}

// Has reports whether the header contains the key.
func (h *Header) Has(name string) bool {
	_, ok := h.values[strings.ToUpper(name)]
	return ok
}

// Str returns a string key with quotes stripped and padding trimmed.
func (h *Header) Str(name string) (string, error) {
	raw, ok := h.values[strings.ToUpper(name)]
	if !ok {
		return "", fmt.Errorf("key %s not present", name)
	}
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		raw = raw[1 : len(raw)-1]
		raw = strings.ReplaceAll(raw, "''", "'")
		raw = strings.TrimRight(raw, " ")
	}
	return raw, nil
}

// Int returns an integer key.
func (h *Header) Int(name string) (int64, error) {
	raw, ok := h.values[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("key %s not present", name)
	}
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

// Float returns a floating-point key.
func (h *Header) Float(name string) (float64, error) {
	raw, ok := h.values[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("key %s not present", name)
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

// HDU is one header-data unit of an open file.
type HDU struct {
	Header    *Header
	dataStart int64
	dataLen   int64
}

// File is a FITS file opened for reading.
type File struct {
	f    *os.File
	HDUs []*HDU
}

// Open reads all headers of a FITS file. Data is read lazily.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	file := &File{f: f}
	var offset int64
	for {
		hdr, hdrLen, err := readHeader(f, offset)
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return nil, err
		}
		dataLen, err := dataLength(hdr)
		if err != nil {
			f.Close()
			return nil, err
		}
		file.HDUs = append(file.HDUs, &HDU{
			Header:    hdr,
			dataStart: offset + hdrLen,
			dataLen:   dataLen,
		})
		padded := (dataLen + BlockSize - 1) / BlockSize * BlockSize
		offset += hdrLen + padded
	}
	if len(file.HDUs) == 0 {
		f.Close()
		return nil, fmt.Errorf("%s is not a FITS file: no header found", path)
	}
	return file, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// Primary returns the first HDU.
func (f *File) Primary() *HDU {
	return f.HDUs[0]
}

// readHeader parses one header unit starting at offset. Returns io.EOF if
// the file ends cleanly at the offset.
func readHeader(f *os.File, offset int64) (*Header, int64, error) {
	hdr := &Header{values: map[string]string{}}
	var length int64
	block := make([]byte, BlockSize)
	for {
		n, err := f.ReadAt(block, offset+length)
		if err == io.EOF && n == 0 && length == 0 {
			return nil, 0, io.EOF
		}
		if err != nil && n < BlockSize {
			return nil, 0, fmt.Errorf("truncated header at offset %d: %w", offset+length, err)
		}
		length += BlockSize
		for c := 0; c < BlockSize; c += cardLen {
			card := string(block[c : c+cardLen])
			name := strings.TrimRight(card[:8], " ")
			if name == "END" {
				return hdr, length, nil
			}
			if name == "" || name == "COMMENT" || name == "HISTORY" {
				hdr.names = append(hdr.names, name)
				continue
			}
			if len(card) < 10 || card[8:10] != "= " {
				continue
			}
			hdr.names = append(hdr.names, name)
			hdr.values[name] = parseValue(card[10:])
		}
	}
}

// parseValue strips an inline comment from a card's value field, honoring
// quoted strings.
func parseValue(s string) string {
	if strings.HasPrefix(strings.TrimLeft(s, " "), "'") {
		// Find the closing quote, skipping doubled quotes.
		start := strings.Index(s, "'")
		i := start + 1
		for i < len(s) {
			if s[i] == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i += 2
					continue
				}
				return s[:i+1]
			}
			i++
		}
		return s
	}
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// dataLength computes the size in bytes of an HDU's data unit.
func dataLength(h *Header) (int64, error) {
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}
	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return 0, err
	}
	elemBytes := bitpix / 8
	if elemBytes < 0 {
		elemBytes = -elemBytes
	}

	axes := make([]int64, naxis)
	for i := range axes {
		axes[i], err = h.Int(fmt.Sprintf("NAXIS%d", i+1))
		if err != nil {
			return 0, err
		}
	}

	if groups, err := h.Str("GROUPS"); err == nil && groups == "T" && axes[0] == 0 {
		pcount, _ := h.Int("PCOUNT")
		gcount, err := h.Int("GCOUNT")
		if err != nil {
			return 0, err
		}
		dataLen := int64(1)
		for _, n := range axes[1:] {
			dataLen *= n
		}
		return gcount * (pcount + dataLen) * elemBytes, nil
	}

	total := elemBytes
	for _, n := range axes {
		total *= n
	}
	return total, nil
}

// GroupLen returns the number of float32 values per group of a
// random-groups HDU.
func (h *HDU) GroupLen() (int, error) {
	pcount, err := h.Header.Int("PCOUNT")
	if err != nil {
		return 0, err
	}
	naxis, err := h.Header.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	dataLen := int64(1)
	for i := int64(2); i <= naxis; i++ {
		n, err := h.Header.Int(fmt.Sprintf("NAXIS%d", i))
		if err != nil {
			return 0, err
		}
		dataLen *= n
	}
	return int(pcount + dataLen), nil
}

// ReadGroup reads one group of a random-groups HDU: the group parameters
// followed by the data values.
func (f *File) ReadGroup(h *HDU, idx int) ([]float32, error) {
	groupLen, err := h.GroupLen()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4*groupLen)
	off := h.dataStart + int64(idx)*int64(len(buf))
	if _, err := f.f.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("failed to read group %d: %w", idx, err)
	}
	out := make([]float32, groupLen)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(buf[4*i:]))
	}
	return out, nil
}

// tableGeometry resolves a binary table column's byte offset and width.
func tableGeometry(h *HDU, col int) (offset, width int64, form string, err error) {
	for i := 1; i <= col+1; i++ {
		form, err = h.Header.Str(fmt.Sprintf("TFORM%d", i))
		if err != nil {
			return 0, 0, "", err
		}
		n, err := formBytes(form)
		if err != nil {
			return 0, 0, "", err
		}
		if i <= col {
			offset += int64(n)
		} else {
			width = int64(n)
		}
	}
	return offset, width, form, nil
}

// readCell returns a table cell's raw bytes.
func (f *File) readCell(h *HDU, row, col int) ([]byte, string, error) {
	rowBytes, err := h.Header.Int("NAXIS1")
	if err != nil {
		return nil, "", err
	}
	offset, width, form, err := tableGeometry(h, col)
	if err != nil {
		return nil, "", err
	}
	buf := make([]byte, width)
	at := h.dataStart + int64(row)*rowBytes + offset
	if _, err := f.f.ReadAt(buf, at); err != nil {
		return nil, "", fmt.Errorf("failed to read cell (%d, %d): %w", row, col, err)
	}
	return buf, form, nil
}

// ReadCellString reads an A column cell with trailing padding removed.
func (f *File) ReadCellString(h *HDU, row, col int) (string, error) {
	buf, _, err := f.readCell(h, row, col)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf), " \x00"), nil
}

// ReadCellDoubles reads a D column cell.
func (f *File) ReadCellDoubles(h *HDU, row, col int) ([]float64, error) {
	buf, _, err := f.readCell(h, row, col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}

// ReadCellInt32 reads a J column cell.
func (f *File) ReadCellInt32(h *HDU, row, col int) (int32, error) {
	buf, _, err := f.readCell(h, row, col)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf)), nil
}

// ReadCellFloats reads an E column cell.
func (f *File) ReadCellFloats(h *HDU, row, col int) ([]float32, error) {
	buf, _, err := f.readCell(h, row, col)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(buf[4*i:]))
	}
	return out, nil
}
