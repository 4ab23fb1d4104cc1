package core

// planner.go implements the Rule-Based Planner. Each detected issue maps to
// exactly one operation, and every plan opens with a table-wide column-name
// standardization. Because that rename runs first, the planner addresses every
// later operation by the column's standardized name.

const (
	// removeMissingAbovePct drops rows instead of imputing a mostly absent column.
	removeMissingAbovePct = 50.0
	// removeOutliersAbovePct drops outlying rows instead of capping them.
	removeOutliersAbovePct = 5.0
)

// Plan returns the auto-plan for t given its detected issues. Issues of kinds
// the planner has no rule for are skipped.
func Plan(t *Table, issues []Issue) []Operation {
	renamed := standardizedNames(t.Names())
	resolve := make(map[string]string, t.Width())
	for i, name := range t.Names() {
		resolve[name] = renamed[i]
	}

	ops := make([]Operation, 0, len(issues)+1)
	ops = append(ops, Operation{Column: AllColumns, Params: StandardizeColumnNames{}, AppliedBy: ActorAuto})

	for _, issue := range issues {
		col := t.Column(issue.Column)
		var params Params
		switch issue.IssueType {
		case IssueMissingValues:
			params = planMissing(col, issue)
		case IssueOutliers:
			params = planOutliers(issue)
		case IssueRareCategories:
			params = GroupRareCategories{Threshold: DefaultRareThreshold, GroupLabel: DefaultGroupLabel}
		default:
			continue
		}
		name := issue.Column
		if r, ok := resolve[name]; ok {
			name = r
		}
		ops = append(ops, Operation{Column: name, Params: params, AppliedBy: ActorAuto})
	}
	return ops
}

func planMissing(col *Column, issue Issue) Params {
	switch {
	case issue.AffectedPercentage > removeMissingAbovePct:
		return ImputeMissing{Strategy: ImputeRemove}
	case col != nil && col.IsNumeric():
		return ImputeMissing{Strategy: ImputeMedian}
	default:
		return ImputeMissing{Strategy: ImputeMode}
	}
}

func planOutliers(issue Issue) Params {
	if issue.AffectedPercentage > removeOutliersAbovePct {
		return HandleOutliers{Strategy: OutlierRemove}
	}
	return HandleOutliers{Strategy: OutlierCap}
}
