package core

// operation.go defines the closed set of cleaning operations.
//
// An Operation pairs a target column with a typed parameter payload. Loosely
// typed parameter maps exist only at the edge (JSON bodies, YAML plans); they
// are decoded into payloads by DecodeOperation so the Cleaning Engine never
// handles untyped maps. Kinds that are not recognized decode to
// UnknownOperation, which the engine applies as a zero-effect step.

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// AllColumns is the sentinel column name for table-wide operations.
const AllColumns = "all"

// OperationKind names an operation on the wire.
type OperationKind string

const (
	OpImputeMissing          OperationKind = "impute_missing"
	OpHandleOutliers         OperationKind = "handle_outliers"
	OpGroupRareCategories    OperationKind = "group_rare_categories"
	OpStandardizeColumn      OperationKind = "standardize_column"
	OpStandardizeColumnNames OperationKind = "standardize_column_names"
	OpNormalizeValues        OperationKind = "normalize_values"
)

// Defaults applied when a parameter is omitted.
const (
	DefaultRareThreshold = 0.01
	DefaultGroupLabel    = "Other"
	UnknownFill          = "Unknown"
)

// ImputeStrategy selects how impute_missing fills or drops missing cells.
type ImputeStrategy string

const (
	ImputeMean   ImputeStrategy = "mean"
	ImputeMedian ImputeStrategy = "median"
	ImputeMode   ImputeStrategy = "mode"
	ImputeRemove ImputeStrategy = "remove"
)

// OutlierStrategy selects how handle_outliers treats values outside the fences.
type OutlierStrategy string

const (
	OutlierCap    OutlierStrategy = "cap"
	OutlierRemove OutlierStrategy = "remove"
)

// NormalizeMethod selects the rescaling used by normalize_values.
type NormalizeMethod string

const (
	NormalizeMinMax NormalizeMethod = "minmax"
	NormalizeZScore NormalizeMethod = "zscore"
)

// Params is the typed payload of an Operation. The set of implementations is closed.
type Params interface {
	Kind() OperationKind
	// Map renders the payload as a wire parameter map.
	Map() map[string]any
	sealed()
}

// ImputeMissing fills or drops missing cells of one column.
type ImputeMissing struct {
	Strategy ImputeStrategy
}

// HandleOutliers caps or drops values outside [Lower, Upper]. Nil bounds are
// recomputed from the column's Tukey fences at application time.
type HandleOutliers struct {
	Strategy OutlierStrategy
	Lower    *float64
	Upper    *float64
}

// GroupRareCategories replaces values whose share is below Threshold with GroupLabel.
type GroupRareCategories struct {
	Threshold  float64
	GroupLabel string
}

// StandardizeColumn normalizes one column's name and, for categorical columns, its values.
type StandardizeColumn struct{}

// StandardizeColumnNames normalizes every column name.
type StandardizeColumnNames struct{}

// NormalizeValues rescales a numeric column.
type NormalizeValues struct {
	Method NormalizeMethod
}

// UnknownOperation carries a kind the engine does not implement.
type UnknownOperation struct {
	Name OperationKind
	Raw  map[string]any
}

func (ImputeMissing) Kind() OperationKind          { return OpImputeMissing }
func (HandleOutliers) Kind() OperationKind         { return OpHandleOutliers }
func (GroupRareCategories) Kind() OperationKind    { return OpGroupRareCategories }
func (StandardizeColumn) Kind() OperationKind      { return OpStandardizeColumn }
func (StandardizeColumnNames) Kind() OperationKind { return OpStandardizeColumnNames }
func (NormalizeValues) Kind() OperationKind        { return OpNormalizeValues }
func (u UnknownOperation) Kind() OperationKind     { return u.Name }

func (ImputeMissing) sealed()          {}
func (HandleOutliers) sealed()         {}
func (GroupRareCategories) sealed()    {}
func (StandardizeColumn) sealed()      {}
func (StandardizeColumnNames) sealed() {}
func (NormalizeValues) sealed()        {}
func (UnknownOperation) sealed()       {}

func (p ImputeMissing) Map() map[string]any {
	return map[string]any{"strategy": string(p.Strategy)}
}

func (p HandleOutliers) Map() map[string]any {
	m := map[string]any{"strategy": string(p.Strategy)}
	if p.Lower != nil {
		m["lower_bound"] = *p.Lower
	}
	if p.Upper != nil {
		m["upper_bound"] = *p.Upper
	}
	return m
}

func (p GroupRareCategories) Map() map[string]any {
	return map[string]any{"threshold": p.Threshold, "group_label": p.GroupLabel}
}

func (StandardizeColumn) Map() map[string]any      { return map[string]any{} }
func (StandardizeColumnNames) Map() map[string]any { return map[string]any{} }

func (p NormalizeValues) Map() map[string]any {
	return map[string]any{"method": string(p.Method)}
}

func (u UnknownOperation) Map() map[string]any {
	m := make(map[string]any, len(u.Raw))
	for k, v := range u.Raw {
		m[k] = v
	}
	return m
}

// Operation is a requested transformation of one column (or AllColumns).
type Operation struct {
	Column    string
	Params    Params
	AppliedBy Actor
}

// Kind returns the operation kind.
func (o Operation) Kind() OperationKind {
	if o.Params == nil {
		return ""
	}
	return o.Params.Kind()
}

// OperationSpec is the loosely typed wire form of an Operation.
type OperationSpec struct {
	Column        string         `json:"column" yaml:"column"`
	OperationType OperationKind  `json:"operation_type" yaml:"operation_type"`
	Parameters    map[string]any `json:"parameters" yaml:"parameters"`
	AppliedBy     Actor          `json:"applied_by,omitempty" yaml:"applied_by,omitempty"`
}

// Spec converts the operation to its wire form.
func (o Operation) Spec() OperationSpec {
	params := map[string]any{}
	if o.Params != nil {
		params = o.Params.Map()
	}
	return OperationSpec{
		Column:        o.Column,
		OperationType: o.Kind(),
		Parameters:    params,
		AppliedBy:     o.AppliedBy,
	}
}

// MarshalJSON encodes the operation as an OperationSpec.
func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Spec())
}

// UnmarshalJSON decodes an OperationSpec into a typed operation.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var spec OperationSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	op, err := DecodeOperation(spec)
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// DecodeOperation converts a wire spec into a typed Operation. Omitted parameters
// take their defaults; parameters of the wrong type are rejected. Unrecognized
// kinds decode to UnknownOperation without error.
func DecodeOperation(spec OperationSpec) (Operation, error) {
	op := Operation{Column: spec.Column, AppliedBy: spec.AppliedBy}
	p := spec.Parameters

	switch spec.OperationType {
	case OpImputeMissing:
		strategy, err := stringParam(p, "strategy", string(ImputeMean))
		if err != nil {
			return op, err
		}
		op.Params = ImputeMissing{Strategy: ImputeStrategy(strategy)}

	case OpHandleOutliers:
		strategy, err := stringParam(p, "strategy", string(OutlierCap))
		if err != nil {
			return op, err
		}
		lower, err := optionalFloatParam(p, "lower_bound")
		if err != nil {
			return op, err
		}
		upper, err := optionalFloatParam(p, "upper_bound")
		if err != nil {
			return op, err
		}
		op.Params = HandleOutliers{Strategy: OutlierStrategy(strategy), Lower: lower, Upper: upper}

	case OpGroupRareCategories:
		threshold := DefaultRareThreshold
		if f, err := optionalFloatParam(p, "threshold"); err != nil {
			return op, err
		} else if f != nil {
			threshold = *f
		}
		label, err := stringParam(p, "group_label", DefaultGroupLabel)
		if err != nil {
			return op, err
		}
		op.Params = GroupRareCategories{Threshold: threshold, GroupLabel: label}

	case OpStandardizeColumn:
		op.Params = StandardizeColumn{}

	case OpStandardizeColumnNames:
		op.Params = StandardizeColumnNames{}

	case OpNormalizeValues:
		method, err := stringParam(p, "method", string(NormalizeMinMax))
		if err != nil {
			return op, err
		}
		op.Params = NormalizeValues{Method: NormalizeMethod(method)}

	default:
		op.Params = UnknownOperation{Name: spec.OperationType, Raw: p}
	}
	return op, nil
}

// DecodeOperations decodes a batch, stopping at the first malformed spec.
func DecodeOperations(specs []OperationSpec) ([]Operation, error) {
	ops := make([]Operation, 0, len(specs))
	for i, spec := range specs {
		op, err := DecodeOperation(spec)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s on %q): %w", i, spec.OperationType, spec.Column, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func stringParam(p map[string]any, key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("invalid parameter %s: %w", key, err)
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

func optionalFloatParam(p map[string]any, key string) (*float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fmt.Errorf("invalid parameter %s: %w", key, err)
	}
	return &f, nil
}
