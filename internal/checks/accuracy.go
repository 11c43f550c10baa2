package checks

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/snapshot"
)

// accuracy verifies observed values conform to each column's internal
// type: numeric precision/scale, integer-ness, date parseability, string
// length, boolean encoding. NULLs are completeness's concern and pass
// here.
func accuracy(in Input) Result {
	snap := in.Snapshot
	var violations []string
	var badValues int64
	var checked int64

	for _, col := range in.Catalog.Columns() {
		if !snap.HasColumn(col.Name) {
			continue // reported by completeness
		}
		for _, row := range snap.Rows {
			v := row[col.Name]
			if v == nil {
				continue
			}
			checked++
			if reason := conforms(v, col.InternalType); reason != "" {
				badValues++
				violations = append(violations, fmt.Sprintf("%s: %s (%s)", col.Name, snapshot.Render(v), reason))
			}
		}
	}

	r := pass(KindAccuracy, snap.Table, snap.Layer,
		fmt.Sprintf("%d values conform to declared types", checked)).
		withMetric("values_checked", checked).
		withMetric("nonconforming_values", badValues)
	if badValues > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d value(s) do not conform to declared types", badValues)
		r = r.withSample(violations)
	}
	return r
}

// conforms checks one value against an internal type, returning "" on
// success or a short reason.
func conforms(v any, t catalog.InternalType) string {
	switch t.Kind {
	case catalog.KindString:
		s, ok := v.(string)
		if !ok {
			s = snapshot.Render(v)
		}
		if t.Length > 0 && len([]rune(s)) > t.Length {
			return fmt.Sprintf("exceeds length %d", t.Length)
		}
		return ""
	case catalog.KindInt:
		switch n := v.(type) {
		case int64, int:
			return ""
		case float64:
			if n == float64(int64(n)) {
				return ""
			}
			return "fractional value in integer column"
		case string:
			if _, err := strconv.ParseInt(n, 10, 64); err != nil {
				return "not an integer"
			}
			return ""
		default:
			return fmt.Sprintf("unexpected type %T", v)
		}
	case catalog.KindDecimal:
		d, err := toDecimal(v)
		if err != nil {
			return "not numeric"
		}
		if t.Precision == 0 {
			return ""
		}
		// Fractional digits must fit the scale, integer digits must fit
		// precision minus scale.
		if -d.Exponent() > int32(t.Scale) {
			return fmt.Sprintf("scale exceeds %d", t.Scale)
		}
		intPart := d.Abs().Truncate(0)
		intDigits := len(intPart.String())
		if intPart.IsZero() {
			intDigits = 0
		}
		if intDigits > t.Precision-t.Scale {
			return fmt.Sprintf("precision exceeds %d", t.Precision)
		}
		return ""
	case catalog.KindBool:
		switch b := v.(type) {
		case bool, int64:
			return ""
		case string:
			switch b {
			case "Y", "N", "y", "n", "true", "false", "0", "1":
				return ""
			}
			return "not a boolean encoding"
		default:
			return fmt.Sprintf("unexpected type %T", v)
		}
	case catalog.KindDate, catalog.KindTimestamp:
		if _, ok := parseTime(v); !ok {
			return "not a parseable date"
		}
		return ""
	default:
		return ""
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(n)
	default:
		return decimal.Decimal{}, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
