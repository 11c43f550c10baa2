package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TypeKind enumerates the internal value kinds a column can map to.
// This is a closed set; unknown external types fail the catalog build
// rather than defaulting silently.
type TypeKind string

const (
	KindUnknown   TypeKind = ""
	KindString    TypeKind = "string"
	KindInt       TypeKind = "int"
	KindDecimal   TypeKind = "decimal"
	KindBool      TypeKind = "bool"
	KindDate      TypeKind = "date"
	KindTimestamp TypeKind = "timestamp"
)

// InternalType is the engine-side type derived from a declared external
// type via the fixed type map.
type InternalType struct {
	Kind TypeKind `json:"kind"`

	// Length bounds VARCHAR/CHAR values. Zero means unbounded.
	Length int `json:"length,omitempty"`

	// Precision and Scale bound NUMERIC values. Both zero for non-numerics.
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`
}

func (t InternalType) String() string {
	switch t.Kind {
	case KindString:
		if t.Length > 0 {
			return fmt.Sprintf("string(%d)", t.Length)
		}
		return "string"
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	default:
		return string(t.Kind)
	}
}

var (
	varcharRe = regexp.MustCompile(`^(?:VARCHAR|CHAR|CHARACTER VARYING)\((\d+)\)$`)
	numericRe = regexp.MustCompile(`^(?:NUMERIC|DECIMAL)\((\d+)\s*,\s*(\d+)\)$`)
)

// MapExternalType resolves a declared external type to its internal type.
//
// The mapping table is fixed: the same external declaration always yields
// the same internal type regardless of layer or connector.
func MapExternalType(external string) (InternalType, error) {
	ext := strings.ToUpper(strings.TrimSpace(external))
	if ext == "" {
		return InternalType{}, fmt.Errorf("external type is empty")
	}

	if m := varcharRe.FindStringSubmatch(ext); m != nil {
		length, _ := strconv.Atoi(m[1])
		return InternalType{Kind: KindString, Length: length}, nil
	}
	if m := numericRe.FindStringSubmatch(ext); m != nil {
		precision, _ := strconv.Atoi(m[1])
		scale, _ := strconv.Atoi(m[2])
		if scale > precision {
			return InternalType{}, fmt.Errorf("invalid numeric type %q: scale exceeds precision", external)
		}
		return InternalType{Kind: KindDecimal, Precision: precision, Scale: scale}, nil
	}

	switch ext {
	case "TEXT", "VARCHAR", "CHAR", "STRING":
		return InternalType{Kind: KindString}, nil
	case "INT", "INTEGER", "BIGINT", "SMALLINT":
		return InternalType{Kind: KindInt}, nil
	case "NUMERIC", "DECIMAL", "FLOAT", "DOUBLE", "DOUBLE PRECISION", "REAL":
		// Unconstrained numerics: value must parse, no digit bounds.
		return InternalType{Kind: KindDecimal}, nil
	case "BOOLEAN", "BOOL":
		return InternalType{Kind: KindBool}, nil
	case "DATE":
		return InternalType{Kind: KindDate}, nil
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME", "TIMESTAMP WITHOUT TIME ZONE":
		return InternalType{Kind: KindTimestamp}, nil
	}
	return InternalType{}, fmt.Errorf("external type %q has no internal mapping", external)
}

// ParseColumnDef splits a "name TYPE" declaration as found in expected
// column lists, e.g. "price NUMERIC(10, 2)".
func ParseColumnDef(def string) (name, externalType string, err error) {
	trimmed := strings.TrimSpace(def)
	i := strings.IndexAny(trimmed, " \t")
	if i < 0 {
		return "", "", fmt.Errorf("column definition %q is missing a type", def)
	}
	return trimmed[:i], strings.TrimSpace(trimmed[i:]), nil
}
