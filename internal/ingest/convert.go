package ingest

// convert.go turns text records into a typed Table.
//
// These functions handle the messy reality of user-provided files:
//   - Currency symbols and thousand separators in numbers
//   - Accounting negatives written as "(123.45)"
//   - Excel formula prefixes (="value")
//   - The many spellings of "no value" (NA, N/A, NULL, NaN, ...)

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/smartclean/internal/core"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// naValues are the cell spellings read as missing.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(raw string) bool {
	return naValues[strings.TrimSpace(raw)]
}

// CleanCell removes common spreadsheet artifacts from a cell value:
//   - Trims whitespace
//   - Removes Excel formula prefix (="...")
//   - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// ParseNumber parses a numeric cell leniently. It handles currency symbols,
// thousands separators and accounting format (parentheses for negative).
func ParseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			return 0, false
		}
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// buildTable turns a header row plus data rows into a Table, coercing
// columns in parallel. format only labels errors.
func buildTable(ctx context.Context, format Format, records [][]string, workers int) (*core.Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	header := records[0]
	if isEmptyRow(header) {
		return nil, ErrNoHeader
	}
	names := columnNames(header)

	rows := records[1:]
	for i, row := range rows {
		if len(row) > len(names) && !isEmptyRow(row[len(names):]) {
			return nil, fmt.Errorf("invalid %s: row %d has %d fields, expected %d", format, i+2, len(row), len(names))
		}
	}

	if workers <= 0 {
		workers = DefaultWorkers
	}
	columns := make([]*core.Column, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range names {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			columns[c] = coerceColumn(names[c], cellsAt(rows, c))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return core.NewTable(columns...)
}

// coerceColumn builds a numeric column when every present cell parses as a
// number, and a categorical column otherwise. A column with no present cells
// is numeric.
func coerceColumn(name string, cells []string) *core.Column {
	values := make([]core.Value, len(cells))
	numeric := true
	for i, raw := range cells {
		if IsMissing(raw) {
			continue
		}
		f, ok := ParseNumber(raw)
		if !ok {
			numeric = false
			break
		}
		values[i] = core.Number(f)
	}
	if numeric {
		return &core.Column{Name: name, Kind: core.KindNumeric, Values: values}
	}

	for i, raw := range cells {
		if IsMissing(raw) {
			values[i] = core.Missing()
		} else {
			values[i] = core.Text(raw)
		}
	}
	return &core.Column{Name: name, Kind: core.KindCategorical, Values: values}
}

// cellsAt returns column c of every row, padding short rows with empty cells.
func cellsAt(rows [][]string, c int) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		if c < len(row) {
			out[i] = row[c]
		}
	}
	return out
}

// columnNames cleans header cells. Blank headers become "Unnamed: i" and
// repeated names get a ".n" suffix so names stay unique.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := CleanCell(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		names[i] = name
	}
	return names
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
