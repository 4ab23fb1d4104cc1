package core

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound1(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2.25, 2.3},
		{-2.25, -2.3},
		{66.666666, 66.7},
		{0.04, 0},
		{100, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, round1(tt.in), 1e-12, "round1(%v)", tt.in)
	}
}

func sampleReport() Report {
	before := newQualityScore(80, 80, 100, 100)
	after := newQualityScore(100, 200.0/3.0, 100, 100)
	log := []OperationRecord{
		{
			Column:        "A",
			OperationType: OpImputeMissing,
			Parameters:    map[string]any{"strategy": "mean"},
			AppliedBy:     ActorAuto,
			Description:   "Filled missing values in 'A' using mean",
		},
		{
			Column:        "b",
			OperationType: OpHandleOutliers,
			Parameters:    map[string]any{"strategy": "remove"},
			AppliedBy:     ActorUser,
			RowsAffected:  3,
			Description:   "Removed outliers from 'b'",
		},
	}
	return BuildReport(log, before, after, 12.345)
}

func TestBuildReport(t *testing.T) {
	r := sampleReport()

	assert.Equal(t, ReportSummary{
		TotalOperations:    2,
		IssuesResolved:     2,
		QualityImprovement: 1.7,
		ProcessingTimeMs:   12.3,
		BeforeScore:        90,
		AfterScore:         91.7,
	}, r.Summary)
	assert.Equal(t, AxisComparison{Before: 80, After: 100, Improvement: 20}, r.QualityComparison.Completeness)
	assert.Equal(t, AxisComparison{Before: 80, After: 66.7, Improvement: -13.3}, r.QualityComparison.Uniqueness)
	assert.Equal(t, AxisComparison{Before: 100, After: 100, Improvement: 0}, r.QualityComparison.Consistency)

	require.Len(t, r.Operations, 2)
	assert.Equal(t, ReportOperation{
		Column:       "b",
		Operation:    OpHandleOutliers,
		Description:  "Removed outliers from 'b'",
		RowsAffected: 3,
		AppliedBy:    ActorUser,
	}, r.Operations[1])
}

func TestBuildReport_ExposesOnlyRoundedNumbers(t *testing.T) {
	tbl := mustTable(numCol("v", 0.5, 0.5, nil))
	before := Score(tbl)
	cleaned, log := Apply(tbl, []Operation{
		op("v", HandleOutliers{Strategy: OutlierCap, Lower: ptr(1.23456), Upper: ptr(9.87654)}),
		op("v", ImputeMissing{Strategy: ImputeMean}),
	}, ActorUser)
	after := Score(cleaned)
	require.NotEqual(t, round1(after.Uniqueness), after.Uniqueness, "fixture must produce an unrounded score")

	data, err := json.Marshal(BuildReport(log, before, after, 3.14159))
	require.NoError(t, err)

	var doc any
	require.NoError(t, json.Unmarshal(data, &doc))
	var walk func(path string, v any)
	walk = func(path string, v any) {
		switch x := v.(type) {
		case map[string]any:
			for k, child := range x {
				walk(path+"."+k, child)
			}
		case []any:
			for i, child := range x {
				walk(fmt.Sprintf("%s[%d]", path, i), child)
			}
		case float64:
			assert.InDelta(t, round1(x), x, 1e-9, "%s = %v is not rounded to one decimal", path, x)
		}
	}
	walk("report", doc)
	assert.NotContains(t, string(data), "1.23456")
	assert.NotContains(t, string(data), "9.87654")
}

func TestBuildReport_NoOperations(t *testing.T) {
	score := newQualityScore(50, 50, 100, 100)
	r := BuildReport(nil, score, score, 0)

	assert.Zero(t, r.Summary.TotalOperations)
	assert.Zero(t, r.Summary.QualityImprovement)
	assert.NotNil(t, r.Operations)
	assert.Contains(t, RenderMarkdown(r), "_No operations were applied._")
}

func TestRenderText(t *testing.T) {
	text := RenderText(sampleReport())

	assert.Contains(t, text, "Total Operations Applied: 2")
	assert.Contains(t, text, "Quality Improvement: +1.7%")
	assert.Contains(t, text, "Overall Score: 90.0 → 91.7 (+1.7%)")
	assert.Contains(t, text, "Completeness:  80.0% → 100.0% (+20.0%)")
	assert.Contains(t, text, "Uniqueness:    80.0% → 66.7% (-13.3%)")
	assert.Contains(t, text, "2. B\n   Operation: handle_outliers")
	assert.Contains(t, text, "Applied By: user")
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleReport())

	assert.Contains(t, md, "| Overall | 90.0 | 91.7 | +1.7 |")
	assert.Contains(t, md, "| Accuracy | 100.0 | 100.0 | +0.0 |")
	assert.Contains(t, md, "| 1 | `A` | impute_missing | Filled missing values in 'A' using mean | 0 | auto |")
}
