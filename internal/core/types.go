// Package core provides the data-quality business logic for SmartClean.
// This package has no transport, storage or file-format dependencies.
package core

// QualityScore holds the four quality axes, each in [0,100], and their mean.
type QualityScore struct {
	Completeness float64 `json:"completeness"`
	Uniqueness   float64 `json:"uniqueness"`
	Consistency  float64 `json:"consistency"`
	Accuracy     float64 `json:"accuracy"`
	Overall      float64 `json:"overall"`
}

// newQualityScore derives Overall as the unweighted mean of the four axes.
func newQualityScore(completeness, uniqueness, consistency, accuracy float64) QualityScore {
	return QualityScore{
		Completeness: completeness,
		Uniqueness:   uniqueness,
		Consistency:  consistency,
		Accuracy:     accuracy,
		Overall:      (completeness + uniqueness + consistency + accuracy) / 4,
	}
}

// IssueType identifies the kind of detected defect.
type IssueType string

const (
	IssueMissingValues  IssueType = "missing_values"
	IssueOutliers       IssueType = "outliers"
	IssueInconsistency  IssueType = "inconsistency"
	IssueDuplicates     IssueType = "duplicates"
	IssueRareCategories IssueType = "rare_categories"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Issue is one detected, localized data-quality defect.
type Issue struct {
	Column               string    `json:"column"`
	IssueType            IssueType `json:"issue_type"`
	AffectedCount        int       `json:"affected_count"`
	AffectedPercentage   float64   `json:"affected_percentage"`
	Severity             Severity  `json:"severity"`
	SuggestedFix         string    `json:"suggested_fix"`
	RecommendedOperation Operation `json:"recommended_operation"`
}

// Actor records who requested an operation.
type Actor string

const (
	ActorAuto Actor = "auto"
	ActorUser Actor = "user"
)

// OperationRecord is an applied Operation plus its measured effect.
type OperationRecord struct {
	Column        string         `json:"column"`
	OperationType OperationKind  `json:"operation_type"`
	Parameters    map[string]any `json:"parameters"`
	AppliedBy     Actor          `json:"applied_by"`
	RowsAffected  int            `json:"rows_affected"`
	Description   string         `json:"description"`
}

// DatasetInfo summarizes an ingested table.
type DatasetInfo struct {
	Filename     string                `json:"filename"`
	SizeKB       float64               `json:"size_kb"`
	Rows         int                   `json:"rows"`
	Columns      int                   `json:"columns"`
	ColumnNames  []string              `json:"column_names"`
	Dtypes       map[string]ColumnKind `json:"dtypes"`
	QualityScore QualityScore          `json:"quality_score"`
}

// Describe builds the DatasetInfo for t, scoring it with the Quality Analyzer.
func Describe(t *Table, filename string, sizeKB float64) DatasetInfo {
	dtypes := make(map[string]ColumnKind, t.Width())
	for _, c := range t.Columns {
		dtypes[c.Name] = c.Kind
	}
	return DatasetInfo{
		Filename:     filename,
		SizeKB:       sizeKB,
		Rows:         t.Rows(),
		Columns:      t.Width(),
		ColumnNames:  t.Names(),
		Dtypes:       dtypes,
		QualityScore: Score(t),
	}
}
