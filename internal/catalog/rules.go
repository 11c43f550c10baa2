package catalog

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// RuleKind enumerates the supported per-column validation predicates.
// Closed set: configuration naming any other kind fails catalog build.
type RuleKind string

const (
	RuleRegexMatch  RuleKind = "regex_match"
	RuleValueEqual  RuleKind = "value_equal"
	RuleGreaterThan RuleKind = "value_greater_than"
	RuleRange       RuleKind = "value_range"
	RuleEnum        RuleKind = "value_in"
	RuleNonNegative RuleKind = "non_negative"
	RuleRequiresCol RuleKind = "requires_column"
)

// Rule is a declarative predicate over a single column, optionally
// referencing a second column (requires_column).
//
// Each rule passes or fails independently; a NULL value passes every rule
// except non_negative on its own column (nullability is completeness's
// concern, not the rule engine's).
type Rule struct {
	Kind RuleKind `json:"kind"`

	// Pattern holds the regular expression for regex_match.
	Pattern string `json:"pattern,omitempty"`

	// Value holds the comparison operand for value_equal / value_greater_than.
	Value string `json:"value,omitempty"`

	// Min and Max bound value_range (inclusive).
	Min string `json:"min,omitempty"`
	Max string `json:"max,omitempty"`

	// Allowed lists the enum members for value_in.
	Allowed []string `json:"allowed,omitempty"`

	// Column names the dependent column for requires_column: when this
	// column is non-null, the named column must be non-null too.
	Column string `json:"column,omitempty"`

	compiled *regexp.Regexp
}

// Compile validates the rule declaration and prepares it for evaluation.
// Called once at catalog build; Eval assumes a compiled rule.
func (r *Rule) Compile() error {
	switch r.Kind {
	case RuleRegexMatch:
		if r.Pattern == "" {
			return fmt.Errorf("rule %s requires a pattern", r.Kind)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern: %w", r.Kind, err)
		}
		r.compiled = re
	case RuleValueEqual:
		if r.Value == "" {
			return fmt.Errorf("rule %s requires a value", r.Kind)
		}
	case RuleGreaterThan:
		if _, err := decimal.NewFromString(r.Value); err != nil {
			return fmt.Errorf("rule %s: value %q is not numeric", r.Kind, r.Value)
		}
	case RuleRange:
		if _, err := decimal.NewFromString(r.Min); err != nil {
			return fmt.Errorf("rule %s: min %q is not numeric", r.Kind, r.Min)
		}
		if _, err := decimal.NewFromString(r.Max); err != nil {
			return fmt.Errorf("rule %s: max %q is not numeric", r.Kind, r.Max)
		}
	case RuleEnum:
		if len(r.Allowed) == 0 {
			return fmt.Errorf("rule %s requires at least one allowed value", r.Kind)
		}
	case RuleNonNegative:
		// No parameters.
	case RuleRequiresCol:
		if r.Column == "" {
			return fmt.Errorf("rule %s requires a column name", r.Kind)
		}
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	return nil
}

// Describe renders the rule for result messages, e.g. "value_in [A B C]".
func (r Rule) Describe() string {
	switch r.Kind {
	case RuleRegexMatch:
		return fmt.Sprintf("%s %q", r.Kind, r.Pattern)
	case RuleValueEqual, RuleGreaterThan:
		return fmt.Sprintf("%s %s", r.Kind, r.Value)
	case RuleRange:
		return fmt.Sprintf("%s [%s, %s]", r.Kind, r.Min, r.Max)
	case RuleEnum:
		return fmt.Sprintf("%s %v", r.Kind, r.Allowed)
	case RuleRequiresCol:
		return fmt.Sprintf("%s %s", r.Kind, r.Column)
	default:
		return string(r.Kind)
	}
}

// Eval applies the rule to one value. lookup resolves sibling columns in
// the same row (nil value, false when absent) and is only consulted by
// requires_column.
func (r Rule) Eval(value any, lookup func(col string) (any, bool)) (bool, error) {
	if value == nil && r.Kind != RuleRequiresCol {
		return true, nil
	}
	switch r.Kind {
	case RuleRegexMatch:
		if r.compiled == nil {
			return false, fmt.Errorf("rule %s evaluated before Compile", r.Kind)
		}
		return r.compiled.MatchString(asString(value)), nil
	case RuleValueEqual:
		return asString(value) == r.Value, nil
	case RuleGreaterThan:
		d, err := asDecimal(value)
		if err != nil {
			return false, nil // non-numeric value cannot satisfy a numeric rule
		}
		bound, _ := decimal.NewFromString(r.Value)
		return d.GreaterThan(bound), nil
	case RuleRange:
		d, err := asDecimal(value)
		if err != nil {
			return false, nil
		}
		lo, _ := decimal.NewFromString(r.Min)
		hi, _ := decimal.NewFromString(r.Max)
		return d.GreaterThanOrEqual(lo) && d.LessThanOrEqual(hi), nil
	case RuleEnum:
		s := asString(value)
		for _, allowed := range r.Allowed {
			if s == allowed {
				return true, nil
			}
		}
		return false, nil
	case RuleNonNegative:
		d, err := asDecimal(value)
		if err != nil {
			return false, nil
		}
		return !d.IsNegative(), nil
	case RuleRequiresCol:
		if value == nil {
			return true, nil
		}
		dep, ok := lookup(r.Column)
		return ok && dep != nil, nil
	default:
		return false, fmt.Errorf("unknown rule kind %q", r.Kind)
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(n)
	case decimal.Decimal:
		return n, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
