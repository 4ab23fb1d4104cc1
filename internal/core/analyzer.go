package core

// analyzer.go implements the Quality Analyzer: a four-axis quality score and
// per-column issue detection. Both are pure functions of the Table.

import "fmt"

// Detection thresholds, in percent of rows unless noted.
const (
	missingHighPct      = 30.0
	missingMediumPct    = 10.0
	outlierHighPct      = 5.0
	acceptableOutlier   = 5.0
	rareShareThreshold  = DefaultRareThreshold // fraction of rows
	consistencyFullMark = 100.0
)

// Analyze scores t and detects its issues.
func Analyze(t *Table) (QualityScore, []Issue) {
	return Score(t), DetectIssues(t)
}

// Score computes the four quality axes and their mean.
func Score(t *Table) QualityScore {
	if t.Rows() == 0 || t.Width() == 0 {
		return newQualityScore(0, 100, 100, 100)
	}
	return newQualityScore(completeness(t), uniqueness(t), consistency(t), accuracy(t))
}

// completeness is the share of present cells.
func completeness(t *Table) float64 {
	present := 0
	for _, c := range t.Columns {
		present += len(c.Values) - c.MissingCount()
	}
	return percent(present, t.Rows()*t.Width())
}

// uniqueness is the summed per-column distinct counts over total cells. It is not
// adjusted for missing cells, so a single-row table scores 100.
func uniqueness(t *Table) float64 {
	distinct := 0
	for _, c := range t.Columns {
		distinct += c.DistinctCount()
	}
	return percent(distinct, t.Rows()*t.Width())
}

// consistency counts columns whose declared kind matches their observed kind.
// Kinds are fixed at ingestion, where cells are coerced to the declared kind,
// so every column currently qualifies.
func consistency(t *Table) float64 {
	return consistencyFullMark
}

// accuracy is the share of columns with an outlier rate below 5%. Categorical
// columns always qualify.
func accuracy(t *Table) float64 {
	rows := t.Rows()
	good := 0
	for _, c := range t.Columns {
		if !c.IsNumeric() {
			good++
			continue
		}
		n, _ := countOutliers(c)
		if percent(n, rows) < acceptableOutlier {
			good++
		}
	}
	return percent(good, t.Width())
}

// DetectIssues runs the independent per-column checks in column order. A column
// may yield several issues.
func DetectIssues(t *Table) []Issue {
	rows := t.Rows()
	issues := []Issue{}
	if rows == 0 {
		return issues
	}
	for _, c := range t.Columns {
		if issue, ok := detectMissing(c, rows); ok {
			issues = append(issues, issue)
		}
		if c.IsNumeric() {
			if issue, ok := detectOutliers(c, rows); ok {
				issues = append(issues, issue)
			}
		} else if issue, ok := detectRareCategories(c, rows); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

func detectMissing(c *Column, rows int) (Issue, bool) {
	missing := c.MissingCount()
	if missing == 0 {
		return Issue{}, false
	}
	pct := percent(missing, rows)
	severity := SeverityLow
	switch {
	case pct > missingHighPct:
		severity = SeverityHigh
	case pct > missingMediumPct:
		severity = SeverityMedium
	}
	strategy := ImputeMode
	if c.IsNumeric() {
		strategy = ImputeMean
	}
	return Issue{
		Column:             c.Name,
		IssueType:          IssueMissingValues,
		AffectedCount:      missing,
		AffectedPercentage: pct,
		Severity:           severity,
		SuggestedFix:       fmt.Sprintf("Column '%s' has %.1f%% missing values", c.Name, pct),
		RecommendedOperation: Operation{
			Column: c.Name,
			Params: ImputeMissing{Strategy: strategy},
		},
	}, true
}

func detectOutliers(c *Column, rows int) (Issue, bool) {
	n, fences := countOutliers(c)
	if n == 0 {
		return Issue{}, false
	}
	pct := percent(n, rows)
	severity := SeverityLow
	if pct > outlierHighPct {
		severity = SeverityHigh
	}
	lower, upper := fences.Lower, fences.Upper
	return Issue{
		Column:             c.Name,
		IssueType:          IssueOutliers,
		AffectedCount:      n,
		AffectedPercentage: pct,
		Severity:           severity,
		SuggestedFix:       fmt.Sprintf("Column '%s' has %.1f%% outliers", c.Name, pct),
		RecommendedOperation: Operation{
			Column: c.Name,
			Params: HandleOutliers{Strategy: OutlierCap, Lower: &lower, Upper: &upper},
		},
	}, true
}

func detectRareCategories(c *Column, rows int) (Issue, bool) {
	rare := rareValues(c, rows, rareShareThreshold)
	if len(rare) == 0 {
		return Issue{}, false
	}
	covered := 0
	for _, v := range c.Values {
		if v.Valid && rare[v.Str] {
			covered++
		}
	}
	pct := percent(covered, rows)
	if pct <= 0 {
		return Issue{}, false
	}
	return Issue{
		Column:             c.Name,
		IssueType:          IssueRareCategories,
		AffectedCount:      covered,
		AffectedPercentage: pct,
		Severity:           SeverityLow,
		SuggestedFix:       fmt.Sprintf("Column '%s' has %.1f%% rare categories", c.Name, pct),
		RecommendedOperation: Operation{
			Column: c.Name,
			Params: GroupRareCategories{Threshold: DefaultRareThreshold, GroupLabel: DefaultGroupLabel},
		},
	}, true
}
