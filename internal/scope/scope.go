// Package scope resolves the merged configuration document into a
// concrete check plan: an ordered, deduplicated list of (layer, category,
// check_type) for one table and run mode.
//
// Resolution is pure and deterministic: no I/O, and identical inputs
// always return identical plans. Layer order is source, landing,
// warehouse; categories run data_validation before data_quality; checks
// keep their declaration order within a cell.
package scope

import (
	"fmt"
	"strings"

	"github.com/datavet/datavet/internal/checks"
	"github.com/datavet/datavet/internal/config"
)

// DetectFrom states where a check's row-level rule set comes from.
type DetectFrom string

const (
	// DetectColumnInfo: rules come from the table's column catalog.
	DetectColumnInfo DetectFrom = "column_info"

	// DetectReferenceLayer: rules come from a paired layer's snapshot.
	// Mandatory for consistency-family checks.
	DetectReferenceLayer DetectFrom = "reference_layer"
)

// ResolvedCheck is one entry of a check plan.
type ResolvedCheck struct {
	Layer      config.Layer    `json:"layer"`
	Category   checks.Category `json:"category"`
	Kind       checks.Kind     `json:"kind"`
	DetectFrom DetectFrom      `json:"detect_from"`
}

// Plan is the resolved, ordered check plan for one table and run mode.
type Plan struct {
	Table   string          `json:"table"`
	RunMode config.RunMode  `json:"run_mode"`
	Checks  []ResolvedCheck `json:"checks"`
}

// categoryOrder fixes the category ordering inside one layer.
var categoryOrder = []checks.Category{
	checks.CategoryDataValidation,
	checks.CategoryDataQuality,
}

// Resolve builds the plan for one table document and run mode.
//
// Scope entries are check names with an optional detect_from hint,
// "completeness" or "completeness:column_info". Unknown check names,
// category mismatches, and a column_info hint on a reference-layer-only
// check all fail with a config error naming the offending key.
func Resolve(doc *config.Document, mode config.RunMode) (*Plan, error) {
	if !config.ValidRunModes[mode] {
		return nil, config.NewError(config.ErrCodeUnknownKey, "run_mode",
			fmt.Sprintf("unknown run_mode %q", mode))
	}

	plan := &Plan{Table: doc.Table, RunMode: mode}
	modeScope, ok := doc.TestScope[mode]
	if !ok {
		// No scope for this mode: an empty plan, not an error. The report
		// will show zero checks rather than inventing defaults.
		return plan, nil
	}

	seen := map[ResolvedCheck]bool{}
	for _, layer := range doc.PresentLayers() {
		layerScope, ok := modeScope[layer]
		if !ok {
			continue
		}
		for _, category := range categoryOrder {
			for _, entry := range layerScope[string(category)] {
				keyPath := fmt.Sprintf("test_scope.%s.%s.%s", mode, layer, category)
				rc, err := parseEntry(entry, layer, category, keyPath)
				if err != nil {
					return nil, err
				}
				if seen[rc] {
					continue
				}
				seen[rc] = true
				plan.Checks = append(plan.Checks, rc)
			}
		}
	}
	return plan, nil
}

// parseEntry parses one scope entry ("kind" or "kind:detect_from").
func parseEntry(entry string, layer config.Layer, category checks.Category, keyPath string) (ResolvedCheck, error) {
	name := strings.TrimSpace(entry)
	hint := DetectFrom("")
	if i := strings.IndexByte(name, ':'); i >= 0 {
		hint = DetectFrom(strings.TrimSpace(name[i+1:]))
		name = strings.TrimSpace(name[:i])
		switch hint {
		case DetectColumnInfo, DetectReferenceLayer:
		default:
			return ResolvedCheck{}, config.NewError(config.ErrCodeUnknownCheck, keyPath,
				fmt.Sprintf("unknown detect_from hint %q on check %q", hint, name))
		}
	}

	kind := checks.Kind(name)
	if !checks.Plannable(kind) {
		return ResolvedCheck{}, config.NewError(config.ErrCodeUnknownCheck, keyPath,
			fmt.Sprintf("unknown check_type %q", name))
	}
	actual, _ := checks.CategoryOf(kind)
	if actual != category {
		return ResolvedCheck{}, config.NewError(config.ErrCodeUnknownCheck, keyPath,
			fmt.Sprintf("check_type %q belongs to category %s", name, actual))
	}

	detect := hint
	if checks.NeedsReferenceLayer(kind) {
		if hint == DetectColumnInfo {
			return ResolvedCheck{}, config.NewError(config.ErrCodeUnknownCheck, keyPath,
				fmt.Sprintf("check_type %q always detects from a reference layer", name))
		}
		detect = DetectReferenceLayer
	} else if detect == "" {
		detect = DetectColumnInfo
	}

	return ResolvedCheck{Layer: layer, Category: category, Kind: kind, DetectFrom: detect}, nil
}

// ReferencePair returns the (left, right) layers a reference-layer check
// on the given layer reconciles: landing reconciles against source,
// warehouse against landing.
func ReferencePair(layer config.Layer) (left, right config.Layer, ok bool) {
	switch layer {
	case config.LayerLanding:
		return config.LayerSource, config.LayerLanding, true
	case config.LayerWarehouse:
		return config.LayerLanding, config.LayerWarehouse, true
	default:
		return "", "", false
	}
}
