package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Merge applies a table-specific override document on top of the default
// document and decodes the result. The caller validates the decoded
// document after filling fallbacks (the table name defaults to the file
// base name, which Merge does not know).
//
// Both inputs are raw YAML. An unparseable default is fatal for the whole
// invocation; an unparseable or unknown-keyed override aborts only the
// table it belongs to.
func Merge(defaultDoc, overrideDoc []byte) (*Document, error) {
	base, err := decodeMap(defaultDoc)
	if err != nil {
		return nil, &Error{Code: ErrCodeParse, Message: fmt.Sprintf("unparseable default document: %v", err), Fatal: true, Err: err}
	}
	var merged map[string]any
	if len(overrideDoc) == 0 {
		merged = base
	} else {
		over, err := decodeMap(overrideDoc)
		if err != nil {
			return nil, &Error{Code: ErrCodeParse, Message: fmt.Sprintf("unparseable table document: %v", err), Err: err}
		}
		merged, err = mergeMaps(base, over, "")
		if err != nil {
			return nil, err
		}
	}

	out, err := yaml.Marshal(merged)
	if err != nil {
		return nil, &Error{Code: ErrCodeParse, Message: fmt.Sprintf("re-encoding merged document: %v", err), Err: err}
	}
	return Decode(out)
}

func decodeMap(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// mergeMaps merges override into base recursively. Scalars and lists are
// leaves: the override value wins wholesale. Keys present in the override
// but absent from the default are configuration errors, so a typo in a
// table document surfaces instead of silently adding dead keys.
//
// Exception: map nodes whose values are open-ended (validation_rules,
// timeliness_columns, layers) accept new keys, since the default document
// cannot enumerate every column or table name.
func mergeMaps(base, override map[string]any, path string) (map[string]any, error) {
	merged := make(map[string]any, len(base))
	for k, v := range base {
		merged[k] = v
	}

	// Deterministic error selection when several keys are unknown.
	keys := make([]string, 0, len(override))
	for k := range override {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := k
		if path != "" {
			childPath = path + "." + k
		}
		baseVal, known := base[k]
		if !known && !openNode(path) {
			return nil, NewError(ErrCodeUnknownKey, childPath,
				"key is not present in the default document")
		}
		overVal := override[k]
		baseMap, baseIsMap := baseVal.(map[string]any)
		overMap, overIsMap := overVal.(map[string]any)
		if known && baseIsMap && overIsMap {
			child, err := mergeMaps(baseMap, overMap, childPath)
			if err != nil {
				return nil, err
			}
			merged[k] = child
			continue
		}
		merged[k] = overVal
	}
	return merged, nil
}

// openNode reports whether the map at the given path accepts keys not
// present in the default document.
func openNode(path string) bool {
	switch path {
	case "layers",
		"columns_info.validation_rules",
		"columns_info.timeliness_columns":
		return true
	}
	// Rule documents under a column ("columns_info.validation_rules.<col>")
	// are open as well.
	const rulesPrefix = "columns_info.validation_rules."
	return len(path) > len(rulesPrefix) && path[:len(rulesPrefix)] == rulesPrefix
}
