// Package checks executes the generic data-quality and rule checks of a
// validation plan. Each check kind is a closed enum variant bound to a
// pure function over (catalog, snapshot); new kinds extend the enum
// explicitly, never via open-ended string dispatch.
package checks

import "fmt"

// Category groups check kinds the way scope documents declare them.
type Category string

const (
	CategoryDataQuality    Category = "data_quality"
	CategoryDataValidation Category = "data_validation"
)

// Kind identifies one check type. The set is closed: the scope resolver
// rejects configuration naming anything outside it.
type Kind string

const (
	KindCompleteness Kind = "completeness"
	KindDuplication  Kind = "duplication"
	KindTimeliness   Kind = "timeliness"
	KindConsistency  Kind = "consistency"
	KindAccuracy     Kind = "accuracy"
	KindHistory      Kind = "history_validation"
	KindRuleChecks   Kind = "rule_checks"
	KindSCD          Kind = "scd_checks"

	// KindConfig marks results the runner records when a table document
	// cannot be executed at all. It is not plannable: scope documents
	// may not name it.
	KindConfig Kind = "config"
)

// KindOrder fixes the canonical ordering of kinds inside one (layer,
// category) cell of a plan. Deterministic plans depend on it.
var KindOrder = []Kind{
	KindConfig,
	KindRuleChecks,
	KindSCD,
	KindCompleteness,
	KindDuplication,
	KindTimeliness,
	KindConsistency,
	KindAccuracy,
	KindHistory,
}

// categories maps each kind to its scope category.
var categories = map[Kind]Category{
	KindCompleteness: CategoryDataQuality,
	KindDuplication:  CategoryDataQuality,
	KindTimeliness:   CategoryDataQuality,
	KindConsistency:  CategoryDataQuality,
	KindAccuracy:     CategoryDataQuality,
	KindHistory:      CategoryDataQuality,
	KindRuleChecks:   CategoryDataValidation,
	KindSCD:          CategoryDataValidation,
	KindConfig:       CategoryDataValidation,
}

// CategoryOf returns the category a kind belongs to.
func CategoryOf(k Kind) (Category, error) {
	c, ok := categories[k]
	if !ok {
		return "", fmt.Errorf("unknown check type %q", k)
	}
	return c, nil
}

// Known reports whether k names a defined check kind.
func Known(k Kind) bool {
	_, ok := categories[k]
	return ok
}

// Plannable reports whether scope documents may name k as a check_type.
func Plannable(k Kind) bool {
	return Known(k) && k != KindConfig
}

// NeedsReferenceLayer reports whether the kind joins two layers and
// therefore always resolves with detect_from=reference_layer.
func NeedsReferenceLayer(k Kind) bool {
	return k == KindConsistency || k == KindSCD || k == KindHistory
}
