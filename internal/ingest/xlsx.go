package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/smartclean/internal/core"
)

// ExportSheet is the sheet name of exported workbooks.
const ExportSheet = "Cleaned Data"

// readXLSX returns the rows of the workbook's first sheet.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// WriteXLSX writes t to a single-sheet workbook with a bold header row.
// Numeric cells are written as numbers; missing cells become MissingPlaceholder.
func WriteXLSX(w io.Writer, t *core.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return err
	}

	header := make([]any, t.Width())
	for i, name := range t.Names() {
		header[i] = name
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return err
	}
	if t.Width() > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(t.Width(), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(ExportSheet, "A1", last, bold); err != nil {
			return err
		}
	}

	row := make([]any, t.Width())
	for r := 0; r < t.Rows(); r++ {
		for c, col := range t.Columns {
			v := col.Values[r]
			switch {
			case !v.Valid:
				row[c] = MissingPlaceholder
			case col.IsNumeric():
				row[c] = v.Num
			default:
				row[c] = v.Str
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}
