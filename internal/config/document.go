// Package config loads and merges the declarative scope documents that
// drive validation: a default document shared by every table plus an
// optional per-table override. The merged result is decoded into Document
// and turned into a catalog.Catalog for check execution.
//
// Merge policy: override keys replace default keys at the leaf level,
// unset leaves inherit the default, and any override key that does not
// exist in the default document is rejected. Lists are leaves and replace
// wholesale.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RunMode selects which test_scope column applies to an invocation.
type RunMode string

const (
	RunModeLocal RunMode = "local"
	RunModeCICD  RunMode = "cicd"
	RunModeETL   RunMode = "etl"
)

// ValidRunModes defines the allowed run modes.
var ValidRunModes = map[RunMode]bool{
	RunModeLocal: true,
	RunModeCICD:  true,
	RunModeETL:   true,
}

// Layer names one stage of the load pipeline.
type Layer string

const (
	LayerSource    Layer = "source"
	LayerLanding   Layer = "landing"
	LayerWarehouse Layer = "warehouse"

	// LayerHistory is not a pipeline stage; it names the optional
	// history-table reference used by history_validation. Never part of
	// LayerOrder or PresentLayers.
	LayerHistory Layer = "history"
)

// LayerOrder fixes the canonical layer ordering used by plans and reports.
var LayerOrder = []Layer{LayerSource, LayerLanding, LayerWarehouse}

// LayerRef locates one layer's physical table.
type LayerRef struct {
	Schema string `yaml:"schema" json:"schema"`
	Table  string `yaml:"table" json:"table"`
}

// ColumnsInfo declares the table's column metadata.
type ColumnsInfo struct {
	// ExpectedColumns lists "name TYPE" declarations in table order.
	ExpectedColumns []string `yaml:"expected_columns" json:"expected_columns"`

	// UniqueColumns names the natural key used for duplication checks and,
	// absent SCD metadata, the business key.
	UniqueColumns []string `yaml:"unique_columns" json:"unique_columns"`

	// NullColumns names the columns allowed to be NULL.
	NullColumns []string `yaml:"null_columns" json:"null_columns"`

	// TimelinessColumns maps marker columns to their maximum age in hours.
	// A zero value exempts the column.
	TimelinessColumns map[string]int `yaml:"timeliness_columns" json:"timeliness_columns"`

	// ValidationRules maps column name to rule kind to parameter value.
	// Scalar rules take the operand directly ("value_greater_than: 0");
	// value_range takes {min, max}; value_in takes a list.
	ValidationRules map[string]map[string]any `yaml:"validation_rules" json:"validation_rules"`
}

// SCDInfo declares the slowly-changing-dimension metadata for the
// warehouse layer. All column names refer to warehouse columns.
type SCDInfo struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	BusinessKey      []string `yaml:"business_key" json:"business_key"`
	SurrogateKey     string   `yaml:"surrogate_key" json:"surrogate_key"`
	HashMajor        string   `yaml:"hash_major" json:"hash_major"`
	HashMinor        string   `yaml:"hash_minor" json:"hash_minor"`
	EffectiveDate    string   `yaml:"effective_date" json:"effective_date"`
	EndDate          string   `yaml:"end_date" json:"end_date"`
	CurrentIndicator string   `yaml:"current_indicator" json:"current_indicator"`
	DeleteIndicator  string   `yaml:"delete_indicator" json:"delete_indicator"`

	// MinorPolicy is the explicit hash_minor policy: "in_place" updates the
	// current row without versioning, "full_version" treats minor changes
	// like major ones. Required whenever HashMinor is configured; never
	// inferred.
	MinorPolicy string `yaml:"minor_policy" json:"minor_policy"`

	// DeleteDetection selects how deletes are recognized in landing:
	// "indicator" (delete_indicator column, the default) or "absence"
	// (key vanishes from the landing snapshot).
	DeleteDetection string `yaml:"delete_detection" json:"delete_detection"`

	// OpenEndDate is the sentinel for an open-ended current version.
	OpenEndDate string `yaml:"open_end_date" json:"open_end_date"`
}

// SyntheticData configures synthetic row generation for the table.
type SyntheticData struct {
	Enabled             bool     `yaml:"enabled" json:"enabled"`
	Rows                int      `yaml:"rows" json:"rows"`
	UniqueColumns       []string `yaml:"unique_columns" json:"unique_columns"`
	ExcludeSpecialChars bool     `yaml:"exclude_special_chars" json:"exclude_special_chars"`

	// OPCOGoverned is a hard regulatory gate: generation is refused outright
	// for governed tables, regardless of Enabled.
	OPCOGoverned bool `yaml:"opco_governed" json:"opco_governed"`

	// DiscardTag marks generated rows so they can be purged post-run.
	DiscardTag string `yaml:"discard_tag" json:"discard_tag"`

	// DiscardColumn is the column carrying the discard tag.
	DiscardColumn string `yaml:"discard_column" json:"discard_column"`
}

// Tolerances sets per-concern failure thresholds. All default to zero.
type Tolerances struct {
	NullFraction float64 `yaml:"null_fraction" json:"null_fraction"`
	Consistency  int     `yaml:"consistency" json:"consistency"`
}

// Document is one merged scope document for a table.
//
// test_scope is run_mode -> layer -> category -> ordered check list.
type Document struct {
	Table        string                                  `yaml:"table" json:"table"`
	LoadStrategy string                                  `yaml:"load_strategy" json:"load_strategy"`
	Layers       map[Layer]LayerRef                      `yaml:"layers" json:"layers"`
	ColumnsInfo  ColumnsInfo                             `yaml:"columns_info" json:"columns_info"`
	SCDInfo      SCDInfo                                 `yaml:"scd_info" json:"scd_info"`
	Synthetic    SyntheticData                           `yaml:"synthetic_data" json:"synthetic_data"`
	TestScope    map[RunMode]map[Layer]map[string][]string `yaml:"test_scope" json:"test_scope"`
	Tolerances   Tolerances                              `yaml:"tolerances" json:"tolerances"`

	// TriggerCounter is the externally-managed retry counter; each explicit
	// retrigger increments it before re-running the full plan.
	TriggerCounter int `yaml:"trigger_counter" json:"trigger_counter"`
}

// PresentLayers returns the layers this table materializes, in canonical
// order. Source is always present; landing and warehouse depend on the
// load strategy.
func (d *Document) PresentLayers() []Layer {
	switch d.LoadStrategy {
	case "source_only":
		return []Layer{LayerSource}
	case "landing_only":
		return []Layer{LayerSource, LayerLanding}
	default:
		// scd / full / append strategies materialize all three layers.
		return []Layer{LayerSource, LayerLanding, LayerWarehouse}
	}
}

// Ref returns the physical reference for a layer.
func (d *Document) Ref(l Layer) (LayerRef, bool) {
	ref, ok := d.Layers[l]
	return ref, ok
}

// Validate checks structural requirements that the CUE schema cannot
// express relationally, returning the first violation.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Table) == "" {
		return NewError(ErrCodeMissingField, "table", "table name is required")
	}
	if len(d.ColumnsInfo.ExpectedColumns) == 0 {
		return NewError(ErrCodeMissingField, "columns_info.expected_columns", "at least one column is required")
	}
	for _, l := range d.PresentLayers() {
		if _, ok := d.Layers[l]; !ok {
			return NewError(ErrCodeMissingField, "layers."+string(l),
				fmt.Sprintf("load_strategy %q requires layer %s", d.LoadStrategy, l))
		}
	}
	if d.SCDInfo.Enabled {
		if len(d.SCDInfo.BusinessKey) == 0 {
			return NewError(ErrCodeSCDMetadata, "scd_info.business_key", "SCD validation requires a business key")
		}
		if d.SCDInfo.HashMajor == "" {
			return NewError(ErrCodeSCDMetadata, "scd_info.hash_major", "SCD validation requires a major hash column")
		}
		if d.SCDInfo.CurrentIndicator == "" {
			return NewError(ErrCodeSCDMetadata, "scd_info.current_indicator", "SCD validation requires a current indicator column")
		}
		if d.SCDInfo.HashMinor != "" && d.SCDInfo.MinorPolicy == "" {
			return NewError(ErrCodeSCDMetadata, "scd_info.minor_policy",
				"hash_minor is configured but minor_policy is not; set in_place or full_version explicitly")
		}
		switch d.SCDInfo.MinorPolicy {
		case "", "in_place", "full_version":
		default:
			return NewError(ErrCodeSCDMetadata, "scd_info.minor_policy",
				fmt.Sprintf("unknown minor_policy %q: must be in_place or full_version", d.SCDInfo.MinorPolicy))
		}
		switch d.SCDInfo.DeleteDetection {
		case "", "indicator", "absence":
		default:
			return NewError(ErrCodeSCDMetadata, "scd_info.delete_detection",
				fmt.Sprintf("unknown delete_detection %q: must be indicator or absence", d.SCDInfo.DeleteDetection))
		}
	}
	return nil
}

// Decode unmarshals merged YAML bytes into a Document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Code: ErrCodeParse, Message: fmt.Sprintf("unparseable document: %v", err), Err: err}
	}
	return &doc, nil
}
