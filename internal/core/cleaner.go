package core

// cleaner.go implements the Cleaning Engine.
//
// Apply works on a private clone of the caller's table and runs operations
// strictly in order, so each step observes the effects of the ones before it.
// Operations that target a missing column, or a column of the wrong kind, are
// recorded as zero-effect steps instead of failing the run.

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Apply runs ops against a copy of t and returns the cleaned table and one
// record per operation.
func Apply(t *Table, ops []Operation, actor Actor) (*Table, []OperationRecord) {
	work := t.Clone()
	records := make([]OperationRecord, 0, len(ops))

	for _, op := range ops {
		before := work.Rows()
		applied := applyOne(work, op)
		after := work.Rows()

		rec := OperationRecord{
			Column:        op.Column,
			OperationType: op.Kind(),
			Parameters:    map[string]any{},
			AppliedBy:     actor,
			RowsAffected:  max(0, before-after),
		}
		if op.Params != nil {
			rec.Parameters = op.Params.Map()
		}
		if applied {
			rec.Description = describe(op)
		} else {
			rec.Description = genericDescription(op)
		}
		records = append(records, rec)
	}
	return work, records
}

// applyOne dispatches on the operation payload. It reports false when the
// operation could not apply to the current table.
func applyOne(t *Table, op Operation) bool {
	if _, ok := op.Params.(StandardizeColumnNames); ok {
		renameColumns(t)
		return true
	}

	col := t.Column(op.Column)
	if col == nil {
		return false
	}

	switch p := op.Params.(type) {
	case ImputeMissing:
		return imputeMissing(t, col, p)
	case HandleOutliers:
		return handleOutliers(t, col, p)
	case GroupRareCategories:
		return groupRareCategories(t, col, p)
	case StandardizeColumn:
		renameColumn(t, col)
		if !col.IsNumeric() {
			for i, v := range col.Values {
				if v.Valid {
					col.Values[i].Str = strings.ToLower(strings.TrimSpace(v.Str))
				}
			}
		}
		return true
	case NormalizeValues:
		return normalizeValues(col, p)
	case UnknownOperation:
		return false
	default:
		return false
	}
}

func imputeMissing(t *Table, col *Column, p ImputeMissing) bool {
	switch p.Strategy {
	case ImputeMean, ImputeMedian:
		if !col.IsNumeric() {
			return false
		}
		fill, ok := columnMean(col)
		if p.Strategy == ImputeMedian {
			fill, ok = columnMedian(col)
		}
		if ok {
			fillMissing(col, Number(fill))
		}
		return true

	case ImputeMode:
		if fill, ok := columnMode(col); ok {
			fillMissing(col, fill)
			return true
		}
		if col.MissingCount() == 0 {
			return true
		}
		// Nothing present to take a mode of.
		if col.IsNumeric() {
			col.Kind = KindCategorical
		}
		fillMissing(col, Text(UnknownFill))
		return true

	case ImputeRemove:
		keep := make([]bool, len(col.Values))
		for i, v := range col.Values {
			keep[i] = v.Valid
		}
		t.keepRows(keep)
		return true
	}
	return false
}

func fillMissing(col *Column, fill Value) {
	for i, v := range col.Values {
		if !v.Valid {
			col.Values[i] = fill
		}
	}
}

func handleOutliers(t *Table, col *Column, p HandleOutliers) bool {
	if !col.IsNumeric() {
		return false
	}
	var fences Fences
	if p.Lower != nil && p.Upper != nil {
		fences = Fences{Lower: *p.Lower, Upper: *p.Upper}
	} else {
		var ok bool
		if fences, ok = TukeyFences(col); !ok {
			return true
		}
	}

	switch p.Strategy {
	case OutlierCap:
		for i, v := range col.Values {
			if v.Valid {
				col.Values[i].Num = math.Min(math.Max(v.Num, fences.Lower), fences.Upper)
			}
		}
		return true
	case OutlierRemove:
		keep := make([]bool, len(col.Values))
		for i, v := range col.Values {
			keep[i] = !v.Valid || fences.Contains(v.Num)
		}
		t.keepRows(keep)
		return true
	}
	return false
}

func groupRareCategories(t *Table, col *Column, p GroupRareCategories) bool {
	if col.IsNumeric() {
		return false
	}
	rare := rareValues(col, t.Rows(), p.Threshold)
	for i, v := range col.Values {
		if v.Valid && rare[v.Str] {
			col.Values[i].Str = p.GroupLabel
		}
	}
	return true
}

func normalizeValues(col *Column, p NormalizeValues) bool {
	if !col.IsNumeric() {
		return false
	}
	xs := col.Floats()
	if len(xs) == 0 {
		return true
	}

	var shift, scale float64
	switch p.Method {
	case NormalizeMinMax:
		lo, hi := floats.Min(xs), floats.Max(xs)
		if hi == lo || !isFinite(hi-lo) {
			return true
		}
		shift, scale = lo, hi-lo
	case NormalizeZScore:
		if len(xs) < 2 {
			return true
		}
		mean, std := stat.MeanStdDev(xs, nil)
		if std == 0 || !isFinite(mean) || !isFinite(std) {
			return true
		}
		shift, scale = mean, std
	default:
		return false
	}

	for i, v := range col.Values {
		if v.Valid {
			col.Values[i].Num = (v.Num - shift) / scale
		}
	}
	return true
}

// StandardizeName lower-cases and trims a column name and replaces spaces with underscores.
func StandardizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// standardizedNames returns the names every column would carry after a
// table-wide rename. A rename whose target is already taken is skipped and the
// column keeps its name.
func standardizedNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	for i, n := range names {
		out[i] = n
		target := StandardizeName(n)
		if target == n || taken[target] {
			continue
		}
		delete(taken, n)
		taken[target] = true
		out[i] = target
	}
	return out
}

func renameColumns(t *Table) {
	for i, name := range standardizedNames(t.Names()) {
		t.Columns[i].Name = name
	}
}

// renameColumn standardizes one column's name in place, keeping its position.
func renameColumn(t *Table, col *Column) {
	target := StandardizeName(col.Name)
	if target == col.Name || t.Column(target) != nil {
		return
	}
	col.Name = target
}

func describe(op Operation) string {
	switch p := op.Params.(type) {
	case ImputeMissing:
		if p.Strategy == ImputeRemove {
			return fmt.Sprintf("Removed rows with missing values in '%s'", op.Column)
		}
		return fmt.Sprintf("Filled missing values in '%s' using %s", op.Column, p.Strategy)
	case HandleOutliers:
		if p.Strategy == OutlierRemove {
			return fmt.Sprintf("Removed outliers from '%s'", op.Column)
		}
		return fmt.Sprintf("Capped outliers in '%s' using IQR method", op.Column)
	case GroupRareCategories:
		return fmt.Sprintf("Grouped rare categories in '%s' to '%s'", op.Column, p.GroupLabel)
	case StandardizeColumn:
		return fmt.Sprintf("Standardized column name and values in '%s'", op.Column)
	case StandardizeColumnNames:
		return "Standardized all column names"
	case NormalizeValues:
		return fmt.Sprintf("Normalized '%s' using %s scaling", op.Column, p.Method)
	}
	return genericDescription(op)
}

func genericDescription(op Operation) string {
	return fmt.Sprintf("Applied %s to '%s'", op.Kind(), op.Column)
}
