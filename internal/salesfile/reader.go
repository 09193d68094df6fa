// =============================================================================
// Sales Analytics - Sales File Reader
// =============================================================================
//
// This module reads the raw sales data file. It handles:
//   - Encoding irregularities (UTF-8 first, then Windows-1252, then ISO-8859-1)
//   - A leading UTF-8 byte order mark
//   - The optional header line (starting with "TransactionID|")
//   - Blank lines and stray whitespace
//   - An optional window on the number of data lines
//
// The reader never interprets field values; that is the parser's job.
//
// =============================================================================

package salesfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ErrLineCount is returned when the data-line count falls outside the
// configured window.
var ErrLineCount = errors.New("data line count out of range")

// headerPrefix identifies the optional header line.
const headerPrefix = "TransactionID|"

// utf8BOM is stripped from the start of UTF-8 input.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// RAW FILE STRUCTURE
// =============================================================================

// RawFile is the content of a sales file split into data lines.
type RawFile struct {
	// Lines contains the trimmed, non-empty data lines (header excluded).
	Lines []string

	// Encoding is the name of the encoding the file was decoded with.
	Encoding string

	// SourceFile is the path that was read.
	SourceFile string

	// HeaderSkipped is true when a header line was found and dropped.
	HeaderSkipped bool
}

// ReadOptions contains settings for reading a sales file.
type ReadOptions struct {
	// MinLines is the minimum number of data lines. Zero disables the check.
	MinLines int

	// MaxLines is the maximum number of data lines. Zero disables the check.
	MaxLines int
}

// candidate is an encoding the reader is willing to try.
type candidate struct {
	name     string
	encoding encoding.Encoding
}

// fallbackEncodings are tried in order when the input is not valid UTF-8.
// ISO-8859-1 maps every byte, so it always succeeds.
var fallbackEncodings = []candidate{
	{name: "windows-1252", encoding: charmap.Windows1252},
	{name: "iso-8859-1", encoding: charmap.ISO8859_1},
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// ReadLines reads a sales file and returns its data lines.
//
// PARAMETERS:
//   - path: The path to the sales file.
//   - opts: Line-count bounds.
//
// RETURNS:
//   - A pointer to the RawFile with the decoded data lines.
//   - An error if the file cannot be read, or ErrLineCount (wrapped) if the
//     number of data lines is outside [MinLines, MaxLines]. The RawFile is
//     still returned alongside ErrLineCount so callers can report the count.
func ReadLines(path string, opts ReadOptions) (*RawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sales file: %w", err)
	}

	text, encodingName, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	raw := SplitLines(text)
	raw.Encoding = encodingName
	raw.SourceFile = path

	if err := checkLineCount(len(raw.Lines), opts); err != nil {
		return raw, err
	}

	return raw, nil
}

// SplitLines splits decoded text into trimmed data lines, dropping blank
// lines and the header line.
func SplitLines(text string) *RawFile {
	raw := &RawFile{Lines: []string{}}

	// Normalize Windows and old Mac line endings.
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, headerPrefix) {
			raw.HeaderSkipped = true
			continue
		}
		raw.Lines = append(raw.Lines, line)
	}

	return raw
}

// decode converts the file bytes to a string, trying UTF-8 first.
func decode(data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	var lastErr error
	for _, c := range fallbackEncodings {
		decoded, err := c.encoding.NewDecoder().Bytes(data)
		if err != nil {
			lastErr = err
			continue
		}
		return string(decoded), c.name, nil
	}

	return "", "", fmt.Errorf("no known encoding matched: %w", lastErr)
}

// checkLineCount enforces the optional data-line window.
func checkLineCount(count int, opts ReadOptions) error {
	if opts.MinLines > 0 && count < opts.MinLines {
		return fmt.Errorf("%w: %d lines, minimum is %d", ErrLineCount, count, opts.MinLines)
	}
	if opts.MaxLines > 0 && count > opts.MaxLines {
		return fmt.Errorf("%w: %d lines, maximum is %d", ErrLineCount, count, opts.MaxLines)
	}
	return nil
}
