// Package fits implements the small subset of the FITS on-disk format the
// uvfits writer needs: a random-groups primary HDU, an appended binary
// table, and a reader for both. All multi-byte values are big-endian and
// every unit of the file is padded to 2880-byte blocks.
package fits

import (
	"fmt"
	"strings"
)

// BlockSize is the FITS logical record length in bytes.
const BlockSize = 2880

// cardLen is the fixed length of one header card.
const cardLen = 80

// padCard space-pads a card image to its fixed length.
func padCard(s string) string {
	if len(s) > cardLen {
		s = s[:cardLen]
	}
	return s + strings.Repeat(" ", cardLen-len(s))
}

func keyField(name string) string {
	name = strings.ToUpper(name)
	if len(name) > 8 {
		name = name[:8]
	}
	return fmt.Sprintf("%-8s", name)
}

func withComment(card, comment string) string {
	if comment == "" {
		return card
	}
	return card + " / " + comment
}

// logicalCard renders a FITS logical key, value in column 30.
func logicalCard(name string, v bool, comment string) string {
	val := "F"
	if v {
		val = "T"
	}
	return padCard(withComment(fmt.Sprintf("%s= %20s", keyField(name), val), comment))
}

func intCard(name string, v int64, comment string) string {
	return padCard(withComment(fmt.Sprintf("%s= %20d", keyField(name), v), comment))
}

func floatCard(name string, v float64, comment string) string {
	return padCard(withComment(fmt.Sprintf("%s= %20s", keyField(name), formatFloat(v)), comment))
}

// formatFloat renders a float the way FITS readers expect: exponential,
// upper-case E, enough digits to round-trip a double.
func formatFloat(v float64) string {
	s := fmt.Sprintf("%.9E", v)
	return s
}

// stringCard renders a quoted string value, padded to the conventional
// minimum of 8 characters inside the quotes. Single quotes in the value are
// doubled per the standard.
func stringCard(name, v, comment string) string {
	v = strings.ReplaceAll(v, "'", "''")
	if len(v) < 8 {
		v += strings.Repeat(" ", 8-len(v))
	}
	return padCard(withComment(fmt.Sprintf("%s= '%s'", keyField(name), v), comment))
}

// textCard renders a commentary card (HISTORY, COMMENT, END): no value
// indicator, text from column 9.
func textCard(name, text string) string {
	return padCard(fmt.Sprintf("%-8s%s", name, text))
}
