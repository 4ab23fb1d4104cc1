// Package ingest converts uploaded CSV and Excel files into core Tables and
// exports Tables back to those formats.
//
// Parsing happens in two passes. Every cell is first read as text; then each
// column is coerced to numeric when all of its present cells parse as
// numbers, and otherwise stays categorical. A cell is missing when it is empty
// or matches one of the common NA spellings (NA, N/A, null, NaN, ...).
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/smartclean/internal/core"
)

var (
	// ErrEmptyFile is returned for input with no bytes or no rows at all.
	ErrEmptyFile = errors.New("empty file")
	// ErrNoHeader is returned when the first row carries no column names.
	ErrNoHeader = errors.New("missing header row")
	// ErrFileTooLarge is returned by ReadLimited when input exceeds the limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedFormat is returned for file names without a known extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format identifies a tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// MissingPlaceholder is written for missing cells on export.
const MissingPlaceholder = "N/A"

// DetectFormat maps a file name to its format by extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ParseExportFormat maps a download format name to a Format. "excel" is an
// alias for xlsx.
func ParseExportFormat(name string) (Format, bool) {
	switch strings.ToLower(name) {
	case "csv":
		return FormatCSV, true
	case "xlsx", "excel":
		return FormatXLSX, true
	default:
		return "", false
	}
}

// Options tunes parsing.
type Options struct {
	// Workers bounds parallel column coercion. Zero uses DefaultWorkers.
	Workers int
}

// DefaultWorkers is the default coercion parallelism.
const DefaultWorkers = 4

// Parse reads data in the given format into a Table.
func Parse(ctx context.Context, format Format, data []byte, opts Options) (*core.Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(bytes.NewReader(data))
	case FormatXLSX:
		records, err = readXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return buildTable(ctx, format, records, opts.Workers)
}

// ParseFile detects the format from path and parses the file.
func ParseFile(ctx context.Context, path string, opts Options) (*core.Table, int64, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := Parse(ctx, format, data, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return t, int64(len(data)), nil
}

// ReadLimited reads r fully, failing with ErrFileTooLarge past limit bytes.
// A non-positive limit disables the check.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}

// Write exports t in the given format.
func Write(w io.Writer, format Format, t *core.Table) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ContentType returns the MIME type of a format.
func ContentType(format Format) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}
