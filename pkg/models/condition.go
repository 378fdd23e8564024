package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOperator is a comparison applied to one field of the instance data bag.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
)

// StepCondition routes a conditional step: the first condition whose field
// matches decides the next step.
type StepCondition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals not_equals greater_than less_than contains"`
	Value    any               `json:"value"`
	NextStep string            `json:"next_step" validate:"required"`
}

// Matches evaluates the condition against the instance data bag. A missing
// field never matches.
func (c StepCondition) Matches(data map[string]any) bool {
	actual, ok := data[c.Field]
	if !ok {
		return false
	}

	switch c.Operator {
	case OperatorEquals:
		return asString(actual) == asString(c.Value)
	case OperatorNotEquals:
		return asString(actual) != asString(c.Value)
	case OperatorGreaterThan:
		a, aok := asFloat(actual)
		b, bok := asFloat(c.Value)

		return aok && bok && a > b
	case OperatorLessThan:
		a, aok := asFloat(actual)
		b, bok := asFloat(c.Value)

		return aok && bok && a < b
	case OperatorContains:
		return strings.Contains(asString(actual), asString(c.Value))
	default:
		return false
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)

		return f, err == nil
	default:
		return 0, false
	}
}
