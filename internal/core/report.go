package core

// report.go implements the Report Generator and its plain-text and Markdown
// renderings. Every number a Report exposes is rounded to one decimal place.

import (
	"fmt"
	"math"
	"strings"
)

// Report compares quality before and after a cleaning run.
type Report struct {
	Summary           ReportSummary     `json:"summary"`
	QualityComparison QualityComparison `json:"quality_comparison"`
	Operations        []ReportOperation `json:"operations"`
}

// ReportSummary holds the headline figures of a run.
type ReportSummary struct {
	TotalOperations    int     `json:"total_operations"`
	IssuesResolved     int     `json:"issues_resolved"`
	QualityImprovement float64 `json:"quality_improvement"`
	ProcessingTimeMs   float64 `json:"processing_time_ms"`
	BeforeScore        float64 `json:"before_score"`
	AfterScore         float64 `json:"after_score"`
}

// AxisComparison is the before/after/improvement triple of one axis.
type AxisComparison struct {
	Before      float64 `json:"before"`
	After       float64 `json:"after"`
	Improvement float64 `json:"improvement"`
}

// QualityComparison holds one triple per quality axis.
type QualityComparison struct {
	Completeness AxisComparison `json:"completeness"`
	Uniqueness   AxisComparison `json:"uniqueness"`
	Consistency  AxisComparison `json:"consistency"`
	Accuracy     AxisComparison `json:"accuracy"`
}

// ReportOperation echoes one OperationRecord.
type ReportOperation struct {
	Column       string        `json:"column"`
	Operation    OperationKind `json:"operation"`
	Description  string        `json:"description"`
	RowsAffected int           `json:"rows_affected"`
	AppliedBy    Actor         `json:"applied_by"`
}

// BuildReport assembles the comparison report for a cleaning run.
func BuildReport(log []OperationRecord, before, after QualityScore, processingTimeMs float64) Report {
	ops := make([]ReportOperation, len(log))
	for i, rec := range log {
		ops[i] = ReportOperation{
			Column:       rec.Column,
			Operation:    rec.OperationType,
			Description:  rec.Description,
			RowsAffected: rec.RowsAffected,
			AppliedBy:    rec.AppliedBy,
		}
	}
	return Report{
		Summary: ReportSummary{
			TotalOperations:    len(log),
			IssuesResolved:     len(log),
			QualityImprovement: round1(after.Overall - before.Overall),
			ProcessingTimeMs:   round1(processingTimeMs),
			BeforeScore:        round1(before.Overall),
			AfterScore:         round1(after.Overall),
		},
		QualityComparison: QualityComparison{
			Completeness: compareAxis(before.Completeness, after.Completeness),
			Uniqueness:   compareAxis(before.Uniqueness, after.Uniqueness),
			Consistency:  compareAxis(before.Consistency, after.Consistency),
			Accuracy:     compareAxis(before.Accuracy, after.Accuracy),
		},
		Operations: ops,
	}
}

func compareAxis(before, after float64) AxisComparison {
	return AxisComparison{
		Before:      round1(before),
		After:       round1(after),
		Improvement: round1(after - before),
	}
}

// round1 rounds half away from zero to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

const rule = "------------------------------------------------------------"

// RenderText renders the report as a plain-text document.
func RenderText(r Report) string {
	var b strings.Builder
	s, q := r.Summary, r.QualityComparison

	b.WriteString("SMARTCLEAN - DATA CLEANING REPORT\n")
	b.WriteString(strings.Repeat("=", len(rule)) + "\n\n")

	b.WriteString("SUMMARY\n" + rule + "\n")
	fmt.Fprintf(&b, "Total Operations Applied: %d\n", s.TotalOperations)
	fmt.Fprintf(&b, "Issues Resolved: %d\n", s.IssuesResolved)
	fmt.Fprintf(&b, "Quality Improvement: %+.1f%%\n", s.QualityImprovement)
	fmt.Fprintf(&b, "Processing Time: %.1fms\n\n", s.ProcessingTimeMs)

	b.WriteString("QUALITY SCORES\n" + rule + "\n")
	fmt.Fprintf(&b, "Overall Score: %.1f → %.1f (%+.1f%%)\n\n", s.BeforeScore, s.AfterScore, s.QualityImprovement)
	for _, axis := range axes(q) {
		fmt.Fprintf(&b, "%-14s %.1f%% → %.1f%% (%+.1f%%)\n",
			axis.name+":", axis.cmp.Before, axis.cmp.After, axis.cmp.Improvement)
	}

	b.WriteString("\nCLEANING OPERATIONS APPLIED\n" + rule + "\n")
	for i, op := range r.Operations {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, strings.ToUpper(op.Column))
		fmt.Fprintf(&b, "   Operation: %s\n", op.Operation)
		fmt.Fprintf(&b, "   Description: %s\n", op.Description)
		fmt.Fprintf(&b, "   Rows Affected: %d\n", op.RowsAffected)
		fmt.Fprintf(&b, "   Applied By: %s\n", op.AppliedBy)
	}
	return b.String()
}

// RenderMarkdown renders the report as a Markdown document.
func RenderMarkdown(r Report) string {
	var b strings.Builder
	s, q := r.Summary, r.QualityComparison

	b.WriteString("# Data Cleaning Report\n\n## Summary\n\n")
	fmt.Fprintf(&b, "- **Total operations applied:** %d\n", s.TotalOperations)
	fmt.Fprintf(&b, "- **Issues resolved:** %d\n", s.IssuesResolved)
	fmt.Fprintf(&b, "- **Quality improvement:** %+.1f%%\n", s.QualityImprovement)
	fmt.Fprintf(&b, "- **Processing time:** %.1f ms\n\n", s.ProcessingTimeMs)

	b.WriteString("## Quality Scores\n\n| Axis | Before | After | Improvement |\n|---|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| Overall | %.1f | %.1f | %+.1f |\n", s.BeforeScore, s.AfterScore, s.QualityImprovement)
	for _, axis := range axes(q) {
		fmt.Fprintf(&b, "| %s | %.1f | %.1f | %+.1f |\n", axis.name, axis.cmp.Before, axis.cmp.After, axis.cmp.Improvement)
	}

	b.WriteString("\n## Operations\n\n")
	if len(r.Operations) == 0 {
		b.WriteString("_No operations were applied._\n")
		return b.String()
	}
	b.WriteString("| # | Column | Operation | Description | Rows affected | Applied by |\n|---:|---|---|---|---:|---|\n")
	for i, op := range r.Operations {
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %d | %s |\n",
			i+1, op.Column, op.Operation, escapePipes(op.Description), op.RowsAffected, op.AppliedBy)
	}
	return b.String()
}

type namedAxis struct {
	name string
	cmp  AxisComparison
}

func axes(q QualityComparison) []namedAxis {
	return []namedAxis{
		{"Completeness", q.Completeness},
		{"Uniqueness", q.Uniqueness},
		{"Consistency", q.Consistency},
		{"Accuracy", q.Accuracy},
	}
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
