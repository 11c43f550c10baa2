package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noLookup(string) (any, bool) { return nil, false }

func TestRule_Compile_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"regex without pattern", Rule{Kind: RuleRegexMatch}},
		{"regex with bad pattern", Rule{Kind: RuleRegexMatch, Pattern: "("}},
		{"value_equal without value", Rule{Kind: RuleValueEqual}},
		{"value_greater_than non-numeric", Rule{Kind: RuleGreaterThan, Value: "abc"}},
		{"value_range non-numeric min", Rule{Kind: RuleRange, Min: "x", Max: "1"}},
		{"value_in empty", Rule{Kind: RuleEnum}},
		{"requires_column without column", Rule{Kind: RuleRequiresCol}},
		{"unknown kind", Rule{Kind: "value_less_than"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			assert.Error(t, rule.Compile())
		})
	}
}

func TestRule_Eval(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		value any
		want  bool
	}{
		{"regex match", Rule{Kind: RuleRegexMatch, Pattern: `^[A-Z]{3}$`}, "ABC", true},
		{"regex no match", Rule{Kind: RuleRegexMatch, Pattern: `^[A-Z]{3}$`}, "abc", false},
		{"value_equal hit", Rule{Kind: RuleValueEqual, Value: "ACTIVE"}, "ACTIVE", true},
		{"value_equal miss", Rule{Kind: RuleValueEqual, Value: "ACTIVE"}, "CLOSED", false},
		{"greater_than above", Rule{Kind: RuleGreaterThan, Value: "0"}, int64(5), true},
		{"greater_than equal", Rule{Kind: RuleGreaterThan, Value: "0"}, int64(0), false},
		{"greater_than string operand", Rule{Kind: RuleGreaterThan, Value: "10"}, "10.5", true},
		{"greater_than non-numeric value", Rule{Kind: RuleGreaterThan, Value: "0"}, "oops", false},
		{"range inside", Rule{Kind: RuleRange, Min: "1", Max: "10"}, "10", true},
		{"range outside", Rule{Kind: RuleRange, Min: "1", Max: "10"}, "10.01", false},
		{"enum member", Rule{Kind: RuleEnum, Allowed: []string{"A", "B"}}, "B", true},
		{"enum outsider", Rule{Kind: RuleEnum, Allowed: []string{"A", "B"}}, "C", false},
		{"non_negative zero", Rule{Kind: RuleNonNegative}, int64(0), true},
		{"non_negative negative", Rule{Kind: RuleNonNegative}, "-0.01", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			require.NoError(t, rule.Compile())
			got, err := rule.Eval(tt.value, noLookup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_Eval_NullPasses(t *testing.T) {
	rule := Rule{Kind: RuleGreaterThan, Value: "100"}
	require.NoError(t, rule.Compile())
	got, err := rule.Eval(nil, noLookup)
	require.NoError(t, err)
	assert.True(t, got, "NULL is completeness's concern, not the rule engine's")
}

func TestRule_Eval_RequiresColumn(t *testing.T) {
	rule := Rule{Kind: RuleRequiresCol, Column: "end_dt"}
	require.NoError(t, rule.Compile())

	withEnd := func(col string) (any, bool) { return "2024-01-01", true }
	nullEnd := func(col string) (any, bool) { return nil, true }

	got, err := rule.Eval("2023-01-01", withEnd)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = rule.Eval("2023-01-01", nullEnd)
	require.NoError(t, err)
	assert.False(t, got, "non-null value demands the dependent column")

	got, err = rule.Eval(nil, nullEnd)
	require.NoError(t, err)
	assert.True(t, got, "null value imposes no dependency")
}
