package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultFileName is the shared default document every table inherits.
const DefaultFileName = "default.yaml"

// LoadDir reads a configuration directory: default.yaml plus one YAML
// document per table. Returns merged, validated documents keyed by file
// base name, in sorted order.
//
// tables filters by base name (without extension); empty means all.
// A broken default document is fatal. A broken table document is returned
// in errsByTable so the caller can record it and continue with siblings.
func LoadDir(dir string, tables []string) (docs []*Document, errsByTable map[string]error, err error) {
	info, statErr := os.Stat(dir)
	if statErr != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("config directory not found: %s", dir)
	}

	defaultPath := filepath.Join(dir, DefaultFileName)
	defaultDoc, readErr := os.ReadFile(defaultPath)
	if readErr != nil {
		return nil, nil, &Error{Code: ErrCodeMissingField, Key: DefaultFileName,
			Message: fmt.Sprintf("default document not readable: %v", readErr), Fatal: true, Err: readErr}
	}
	if schemaErr := ValidateSchema(DefaultFileName, defaultDoc); schemaErr != nil {
		if ce, ok := schemaErr.(*Error); ok {
			ce.Fatal = true
		}
		return nil, nil, schemaErr
	}
	// The default must itself merge cleanly (it may be a complete document
	// for tables with no override).
	if _, mergeErr := Merge(defaultDoc, nil); mergeErr != nil {
		return nil, nil, mergeErr
	}

	entries, readDirErr := os.ReadDir(dir)
	if readDirErr != nil {
		return nil, nil, fmt.Errorf("scanning config directory: %w", readDirErr)
	}

	wanted := map[string]bool{}
	for _, t := range tables {
		wanted[t] = true
	}

	errsByTable = map[string]error{}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == DefaultFileName {
			continue
		}
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		base := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		if len(wanted) > 0 && !wanted[base] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		raw, tableErr := os.ReadFile(filepath.Join(dir, name))
		if tableErr != nil {
			errsByTable[base] = fmt.Errorf("reading %s: %w", name, tableErr)
			continue
		}
		if schemaErr := ValidateSchema(name, raw); schemaErr != nil {
			errsByTable[base] = schemaErr
			continue
		}
		doc, mergeErr := Merge(defaultDoc, raw)
		if mergeErr != nil {
			if IsFatal(mergeErr) {
				return nil, nil, mergeErr
			}
			errsByTable[base] = mergeErr
			continue
		}
		if doc.Table == "" {
			doc.Table = base
		}
		if validateErr := doc.Validate(); validateErr != nil {
			errsByTable[base] = validateErr
			continue
		}
		docs = append(docs, doc)
	}

	if len(wanted) > 0 {
		for t := range wanted {
			found := false
			for _, d := range docs {
				if d.Table == t {
					found = true
					break
				}
			}
			if !found {
				if _, recorded := errsByTable[t]; !recorded {
					errsByTable[t] = fmt.Errorf("no document for table %q in %s", t, dir)
				}
			}
		}
	}
	return docs, errsByTable, nil
}
