package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(column string, params Params) Operation {
	return Operation{Column: column, Params: params}
}

func ptr(f float64) *float64 { return &f }

func TestApply_ImputeMeanExample(t *testing.T) {
	tbl := mustTable(numCol("A", 1, 2, nil, 4, 5))

	cleaned, log := Apply(tbl, []Operation{op("A", ImputeMissing{Strategy: ImputeMean})}, ActorUser)

	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0, 5.0}, floatsOf(cleaned.Column("A")))
	assert.Zero(t, cleaned.Column("A").MissingCount())
	assert.Equal(t, 1, tbl.Column("A").MissingCount(), "caller table must not change")

	require.Len(t, log, 1)
	assert.Equal(t, OperationRecord{
		Column:        "A",
		OperationType: OpImputeMissing,
		Parameters:    map[string]any{"strategy": "mean"},
		AppliedBy:     ActorUser,
		RowsAffected:  0,
		Description:   "Filled missing values in 'A' using mean",
	}, log[0])
}

func TestApply_ImputeMissing(t *testing.T) {
	tests := []struct {
		name     string
		column   *Column
		strategy ImputeStrategy
		want     []any
		wantKind ColumnKind
		wantRows int
	}{
		{
			name:     "median fills numeric",
			column:   numCol("c", 1, 2, nil, 10),
			strategy: ImputeMedian,
			want:     []any{1.0, 2.0, 2.0, 10.0},
			wantKind: KindNumeric,
			wantRows: 4,
		},
		{
			name:     "mean ignores categorical",
			column:   catCol("c", "a", nil),
			strategy: ImputeMean,
			want:     []any{"a", nil},
			wantKind: KindCategorical,
			wantRows: 2,
		},
		{
			name:     "mode fills categorical",
			column:   catCol("c", "a", "b", "a", nil),
			strategy: ImputeMode,
			want:     []any{"a", "b", "a", "a"},
			wantKind: KindCategorical,
			wantRows: 4,
		},
		{
			name:     "mode tie picks smallest number",
			column:   numCol("c", 3, 1, nil),
			strategy: ImputeMode,
			want:     []any{3.0, 1.0, 1.0},
			wantKind: KindNumeric,
			wantRows: 3,
		},
		{
			name:     "mode of all missing categorical is Unknown",
			column:   catCol("c", nil, nil),
			strategy: ImputeMode,
			want:     []any{"Unknown", "Unknown"},
			wantKind: KindCategorical,
			wantRows: 2,
		},
		{
			name:     "mode of all missing numeric becomes categorical Unknown",
			column:   numCol("c", nil, nil),
			strategy: ImputeMode,
			want:     []any{"Unknown", "Unknown"},
			wantKind: KindCategorical,
			wantRows: 2,
		},
		{
			name:     "remove drops rows",
			column:   catCol("c", "a", nil, "b", nil),
			strategy: ImputeRemove,
			want:     []any{"a", "b"},
			wantKind: KindCategorical,
			wantRows: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, _ := Apply(mustTable(tt.column), []Operation{op("c", ImputeMissing{Strategy: tt.strategy})}, ActorAuto)

			col := cleaned.Column("c")
			require.NotNil(t, col)
			assert.Equal(t, tt.wantKind, col.Kind)
			assert.Equal(t, tt.wantRows, cleaned.Rows())
			if col.IsNumeric() {
				assert.Equal(t, tt.want, floatsOf(col))
			} else {
				assert.Equal(t, tt.want, stringsOf(col))
			}
		})
	}
}

func TestApply_ImputeNumericStrategiesLeaveNoMissing(t *testing.T) {
	for _, strategy := range []ImputeStrategy{ImputeMean, ImputeMedian, ImputeMode} {
		t.Run(string(strategy), func(t *testing.T) {
			tbl := mustTable(numCol("n", 4, nil, 8, nil, 1))
			cleaned, _ := Apply(tbl, []Operation{op("n", ImputeMissing{Strategy: strategy})}, ActorAuto)
			assert.Zero(t, cleaned.Column("n").MissingCount())
		})
	}
}

func TestApply_RemoveReportsRowsAffected(t *testing.T) {
	tbl := mustTable(numCol("a", 1, nil, nil, 4), catCol("b", "w", "x", "y", "z"))

	cleaned, log := Apply(tbl, []Operation{op("a", ImputeMissing{Strategy: ImputeRemove})}, ActorAuto)

	assert.Equal(t, 2, cleaned.Rows())
	assert.Equal(t, []any{"w", "z"}, stringsOf(cleaned.Column("b")))
	assert.Equal(t, 2, log[0].RowsAffected)
	assert.Equal(t, "Removed rows with missing values in 'a'", log[0].Description)
}

func TestApply_HandleOutliersCapExample(t *testing.T) {
	tbl := mustTable(numCol("values", 1, 2, 3, 4, 5, 6, 7, 8, 9, 100))

	cleaned, log := Apply(tbl, []Operation{op("values", HandleOutliers{Strategy: OutlierCap})}, ActorAuto)

	assert.Equal(t, 10, cleaned.Rows())
	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0, 14.5}, floatsOf(cleaned.Column("values")))
	assert.Zero(t, log[0].RowsAffected)
	assert.Equal(t, "Capped outliers in 'values' using IQR method", log[0].Description)
}

func TestApply_HandleOutliers(t *testing.T) {
	tests := []struct {
		name     string
		column   *Column
		params   HandleOutliers
		want     []any
		wantRows int
	}{
		{
			name:     "remove drops outlying rows",
			column:   numCol("v", 1, 2, 3, 4, 5, 6, 7, 8, 9, 100),
			params:   HandleOutliers{Strategy: OutlierRemove},
			want:     []any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0},
			wantRows: 9,
		},
		{
			name:     "remove keeps missing cells",
			column:   numCol("v", 1, 2, 3, 4, 5, 6, 7, 8, 9, 100, nil),
			params:   HandleOutliers{Strategy: OutlierRemove},
			want:     []any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0, nil},
			wantRows: 10,
		},
		{
			name:     "remove without outliers keeps every row",
			column:   numCol("v", 1, 2, 3),
			params:   HandleOutliers{Strategy: OutlierRemove},
			want:     []any{1.0, 2.0, 3.0},
			wantRows: 3,
		},
		{
			name:     "cap with supplied bounds",
			column:   numCol("v", 0, 3, 9, nil),
			params:   HandleOutliers{Strategy: OutlierCap, Lower: ptr(2), Upper: ptr(5)},
			want:     []any{2.0, 3.0, 5.0, nil},
			wantRows: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, _ := Apply(mustTable(tt.column), []Operation{op("v", tt.params)}, ActorAuto)
			assert.Equal(t, tt.wantRows, cleaned.Rows())
			assert.Equal(t, tt.want, floatsOf(cleaned.Column("v")))
		})
	}
}

func TestApply_GroupRareCategories(t *testing.T) {
	values := append(repeat("x", 150), "y")
	tbl := mustTable(catCol("B", values...))
	group := op("B", GroupRareCategories{Threshold: 0.01, GroupLabel: "Other"})

	once, log := Apply(tbl, []Operation{group}, ActorAuto)
	twice, _ := Apply(tbl, []Operation{group, group}, ActorAuto)

	assert.Equal(t, "Other", once.Column("B").Values[150].Str)
	assert.Equal(t, once, twice)
	assert.Equal(t, "Grouped rare categories in 'B' to 'Other'", log[0].Description)
}

func TestApply_StandardizeColumn(t *testing.T) {
	tbl := mustTable(numCol("id", 1, 2), catCol(" First Name ", " Alice ", "BOB"), numCol("Score", 3, 4))

	cleaned, log := Apply(tbl, []Operation{op(" First Name ", StandardizeColumn{})}, ActorUser)

	assert.Equal(t, []string{"id", "first_name", "Score"}, cleaned.Names())
	assert.Equal(t, []any{"alice", "bob"}, stringsOf(cleaned.Column("first_name")))
	assert.Equal(t, []any{3.0, 4.0}, floatsOf(cleaned.Column("Score")))
	assert.Equal(t, "Standardized column name and values in ' First Name '", log[0].Description)
}

func TestApply_StandardizeColumnNames(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{"renames every column", []string{"Order ID", " Total Amount", "city"}, []string{"order_id", "total_amount", "city"}},
		{"skips colliding rename", []string{"First Name", "first_name"}, []string{"First Name", "first_name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := make([]*Column, len(tt.names))
			for i, n := range tt.names {
				cols[i] = numCol(n, i)
			}
			cleaned, log := Apply(mustTable(cols...), []Operation{op(AllColumns, StandardizeColumnNames{})}, ActorAuto)

			assert.Equal(t, tt.want, cleaned.Names())
			for i := range tt.want {
				assert.Equal(t, []any{float64(i)}, floatsOf(cleaned.Columns[i]))
			}
			assert.Equal(t, "Standardized all column names", log[0].Description)
		})
	}
}

func TestApply_NormalizeValues(t *testing.T) {
	tests := []struct {
		name   string
		column *Column
		method NormalizeMethod
		want   []any
	}{
		{"minmax", numCol("n", 2, 4, nil, 6), NormalizeMinMax, []any{0.0, 0.5, nil, 1.0}},
		{"minmax constant is skipped", numCol("n", 3, 3), NormalizeMinMax, []any{3.0, 3.0}},
		{"zscore uses sample std", numCol("n", 1, 2, 3), NormalizeZScore, []any{-1.0, 0.0, 1.0}},
		{"zscore constant is skipped", numCol("n", 5, 5, 5), NormalizeZScore, []any{5.0, 5.0, 5.0}},
		{"zscore single value is skipped", numCol("n", 5, nil), NormalizeZScore, []any{5.0, nil}},
		{"all missing is skipped", numCol("n", nil, nil), NormalizeMinMax, []any{nil, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, _ := Apply(mustTable(tt.column), []Operation{op("n", NormalizeValues{Method: tt.method})}, ActorAuto)
			got := floatsOf(cleaned.Column("n"))
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				if tt.want[i] == nil {
					assert.Nil(t, got[i])
					continue
				}
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestApply_NoOpsStillRecorded(t *testing.T) {
	tbl := mustTable(numCol("n", 1, 2), catCol("c", "a", "b"))
	ops := []Operation{
		op("missing", ImputeMissing{Strategy: ImputeMean}),
		op("c", HandleOutliers{Strategy: OutlierCap}),
		op("n", GroupRareCategories{Threshold: 0.5, GroupLabel: "Other"}),
		op("c", NormalizeValues{Method: NormalizeMinMax}),
		op("n", UnknownOperation{Name: "drop_everything", Raw: map[string]any{"force": true}}),
	}

	cleaned, log := Apply(tbl, ops, ActorUser)

	assert.Equal(t, tbl, cleaned)
	require.Len(t, log, len(ops))
	assert.Equal(t, "Applied impute_missing to 'missing'", log[0].Description)
	assert.Equal(t, "Applied handle_outliers to 'c'", log[1].Description)
	assert.Equal(t, "Applied group_rare_categories to 'n'", log[2].Description)
	assert.Equal(t, "Applied normalize_values to 'c'", log[3].Description)
	assert.Equal(t, "Applied drop_everything to 'n'", log[4].Description)
	assert.Equal(t, OperationKind("drop_everything"), log[4].OperationType)
	assert.Equal(t, map[string]any{"force": true}, log[4].Parameters)
	for _, rec := range log {
		assert.Zero(t, rec.RowsAffected)
		assert.Equal(t, ActorUser, rec.AppliedBy)
	}
}

func TestApply_OperationsComposeInOrder(t *testing.T) {
	tbl := mustTable(numCol("Total Amount", 1, nil, 3))
	ops := []Operation{
		op(AllColumns, StandardizeColumnNames{}),
		op("total_amount", ImputeMissing{Strategy: ImputeMedian}),
		op("total_amount", NormalizeValues{Method: NormalizeMinMax}),
	}

	cleaned, log := Apply(tbl, ops, ActorAuto)

	assert.Equal(t, []string{"total_amount"}, cleaned.Names())
	assert.Equal(t, []any{0.0, 0.5, 1.0}, floatsOf(cleaned.Column("total_amount")))
	assert.Equal(t, "Filled missing values in 'total_amount' using median", log[1].Description)
}
