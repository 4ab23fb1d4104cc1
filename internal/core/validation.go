package core

// validation.go implements the Operation Validator, which rejects configured
// operations that are unsafe or meaningless before the Cleaning Engine runs.
//
// Validation happens at two levels:
//  1. Operation validation: one operation against one table (CheckOperation, Validate)
//  2. Plan validation: an ordered plan against a table, following the renames
//     earlier operations perform (ValidatePlan)
//
// A rejection never stops validation of the rest of a batch; ValidatePlan
// returns every rejection so the caller can name all offending columns at once.

import "fmt"

// ValidationError represents a single rejected operation.
type ValidationError struct {
	Column    string        `json:"column"`    // Column the operation targets
	Operation OperationKind `json:"operation"` // Operation kind
	Message   string        `json:"message"`   // Human-readable reason
}

func (e ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("invalid operation %s on column %q: %s", e.Operation, e.Column, e.Message)
	}
	return fmt.Sprintf("invalid operation %s: %s", e.Operation, e.Message)
}

// Validate reports whether op is safe to apply to t.
func Validate(op Operation, t *Table) bool {
	return CheckOperation(op, t) == nil
}

// CheckOperation validates op against t and describes the first problem found.
// The AllColumns sentinel always validates. Otherwise the column must exist,
// handle_outliers needs a numeric column and impute_missing needs at least one
// missing cell. Every other combination is accepted.
func CheckOperation(op Operation, t *Table) error {
	if op.Column == AllColumns {
		return nil
	}
	col := t.Column(op.Column)
	if col == nil {
		return &ValidationError{Column: op.Column, Operation: op.Kind(), Message: "column not found"}
	}

	switch op.Params.(type) {
	case HandleOutliers:
		if !col.IsNumeric() {
			return &ValidationError{Column: op.Column, Operation: op.Kind(), Message: "column is not numeric"}
		}
	case ImputeMissing:
		if col.MissingCount() == 0 {
			return &ValidationError{Column: op.Column, Operation: op.Kind(), Message: "column has no missing values"}
		}
	}
	return nil
}

// ValidatePlan validates each operation of a plan in order. Operations are
// checked against a schema view that applies the renames performed by earlier
// standardize_column_names and standardize_column steps, so a plan may address
// a column by the name it will have when the operation runs.
func ValidatePlan(ops []Operation, t *Table) []ValidationError {
	view := schemaView(t)
	var errs []ValidationError
	for _, op := range ops {
		if err := CheckOperation(op, view); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				errs = append(errs, *ve)
			}
			continue
		}
		switch op.Params.(type) {
		case StandardizeColumnNames:
			renameColumns(view)
		case StandardizeColumn:
			if col := view.Column(op.Column); col != nil {
				renameColumn(view, col)
			}
		}
	}
	return errs
}

// schemaView copies t's column headers while sharing cell storage. Renaming a
// view column leaves t untouched; cells must not be written through the view.
func schemaView(t *Table) *Table {
	view := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		view.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Values: c.Values}
	}
	return view
}
