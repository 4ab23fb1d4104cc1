package ingest

// csv.go reads and writes delimited text.
//
// Input is decoded as UTF-8 before parsing: a leading byte-order mark is
// dropped and invalid byte sequences become U+FFFD, so files saved by
// spreadsheet tools on Windows parse the same as clean ones.

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/smartclean/internal/core"
)

// utf8Reader strips a BOM and sanitizes invalid UTF-8.
func utf8Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(utf8Reader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return records, nil
}

// WriteCSV writes t with a header row. Missing cells become MissingPlaceholder.
func WriteCSV(w io.Writer, t *core.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}

	row := make([]string, t.Width())
	for r := 0; r < t.Rows(); r++ {
		for c, col := range t.Columns {
			if col.Values[r].Valid {
				row[c] = col.Format(r)
			} else {
				row[c] = MissingPlaceholder
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
