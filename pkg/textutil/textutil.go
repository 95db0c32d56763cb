// Package textutil holds byte-level checks applied to candidate source files
// before they are parsed, and line diffs of converted output.
package textutil

import (
	"bytes"
	"unicode/utf8"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// IsBinary reports whether data has a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// IsText reports whether data looks like UTF-8 source text.
func IsText(data []byte) bool {
	return !IsBinary(data) && utf8.Valid(data)
}

// CountLines returns the number of newline-delimited lines in data.
// A final line without a newline still counts.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}
