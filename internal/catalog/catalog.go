// Package catalog holds typed column metadata for a single table: column
// specs, role tags, the external-to-internal type map, and per-column
// validation rules.
//
// A Catalog is built once from configuration and treated as immutable
// afterwards. Every check receives the catalog alongside the snapshot it
// runs against; nothing in the engine inspects raw configuration maps at
// check time.
package catalog

import (
	"fmt"
	"strings"
)

// Role tags a column with its function in the load pipeline.
type Role string

const (
	RoleBusinessKey      Role = "business_key"
	RoleSurrogateKey     Role = "surrogate_key"
	RoleHashMajor        Role = "hash_major"
	RoleHashMinor        Role = "hash_minor"
	RoleEffectiveDate    Role = "effective_date"
	RoleEndDate          Role = "end_date"
	RoleCurrentIndicator Role = "current_indicator"
	RoleDeleteIndicator  Role = "delete_indicator"
	RoleTimelinessMarker Role = "timeliness_marker"
)

// validRoles defines the allowed role tags.
var validRoles = map[Role]bool{
	RoleBusinessKey:      true,
	RoleSurrogateKey:     true,
	RoleHashMajor:        true,
	RoleHashMinor:        true,
	RoleEffectiveDate:    true,
	RoleEndDate:          true,
	RoleCurrentIndicator: true,
	RoleDeleteIndicator:  true,
	RoleTimelinessMarker: true,
}

// singletonRoles may be carried by at most one column per table.
var singletonRoles = []Role{
	RoleEffectiveDate,
	RoleEndDate,
	RoleCurrentIndicator,
	RoleDeleteIndicator,
	RoleSurrogateKey,
	RoleHashMajor,
	RoleHashMinor,
}

// ColumnSpec describes one column of a table.
type ColumnSpec struct {
	Name         string       `json:"name"`
	ExternalType string       `json:"external_type"`           // declared type, e.g. "VARCHAR(50)"
	InternalType InternalType `json:"internal_type"`           // derived via the type map
	Nullable     bool         `json:"nullable"`
	Roles        []Role       `json:"roles,omitempty"`
	Rules        []Rule       `json:"rules,omitempty"`

	// ExpectedHours bounds the age of a timeliness_marker column.
	// Zero means the marker is exempt from timeliness checks.
	ExpectedHours int `json:"expected_hours,omitempty"`
}

// HasRole reports whether the column carries the given role tag.
func (c ColumnSpec) HasRole(r Role) bool {
	for _, have := range c.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Catalog is the immutable column metadata for one table.
//
// INVARIANTS (enforced by New):
//   - column names are unique
//   - at most one column per singleton role (effective_date, end_date,
//     current_indicator, delete_indicator, surrogate_key, hash columns)
//   - every role tag is a known Role
type Catalog struct {
	Table   string
	columns []ColumnSpec
	byName  map[string]int
}

// New builds a Catalog, deriving internal types and validating role tags.
// Columns whose InternalType is unset are mapped from ExternalType.
func New(table string, columns []ColumnSpec) (*Catalog, error) {
	if table == "" {
		return nil, fmt.Errorf("catalog: table name is required")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("catalog: table %s declares no columns", table)
	}

	c := &Catalog{
		Table:   table,
		columns: make([]ColumnSpec, len(columns)),
		byName:  make(map[string]int, len(columns)),
	}
	copy(c.columns, columns)

	seenRole := map[Role]string{}
	for i := range c.columns {
		col := &c.columns[i]
		name := strings.TrimSpace(col.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog: table %s has a column with an empty name", table)
		}
		col.Name = name
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("catalog: table %s declares column %q twice", table, name)
		}
		c.byName[name] = i

		if col.InternalType.Kind == KindUnknown {
			it, err := MapExternalType(col.ExternalType)
			if err != nil {
				return nil, fmt.Errorf("catalog: column %s.%s: %w", table, name, err)
			}
			col.InternalType = it
		}

		for _, r := range col.Roles {
			if !validRoles[r] {
				return nil, fmt.Errorf("catalog: column %s.%s has unknown role %q", table, name, r)
			}
			for _, singleton := range singletonRoles {
				if r != singleton {
					continue
				}
				if prev, ok := seenRole[r]; ok {
					return nil, fmt.Errorf(
						"catalog: table %s tags both %q and %q as %s; at most one column may carry that role",
						table, prev, name, r)
				}
				seenRole[r] = name
			}
		}
	}
	return c, nil
}

// Columns returns the column specs in declaration order.
// The returned slice must not be mutated.
func (c *Catalog) Columns() []ColumnSpec {
	return c.columns
}

// ColumnNames returns the column names in declaration order.
func (c *Catalog) ColumnNames() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a column spec by name.
func (c *Catalog) Column(name string) (ColumnSpec, bool) {
	i, ok := c.byName[name]
	if !ok {
		return ColumnSpec{}, false
	}
	return c.columns[i], true
}

// withRole returns all columns carrying the given role, in declaration order.
func (c *Catalog) withRole(r Role) []ColumnSpec {
	var out []ColumnSpec
	for _, col := range c.columns {
		if col.HasRole(r) {
			out = append(out, col)
		}
	}
	return out
}

// BusinessKey returns the business key column names in declaration order.
// A table may key on multiple columns (composite natural key).
func (c *Catalog) BusinessKey() []string {
	cols := c.withRole(RoleBusinessKey)
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}

// single returns the name of the unique column carrying a singleton role,
// or "" when no column is tagged.
func (c *Catalog) single(r Role) string {
	cols := c.withRole(r)
	if len(cols) == 0 {
		return ""
	}
	return cols[0].Name
}

// SurrogateKey returns the surrogate key column name, or "".
func (c *Catalog) SurrogateKey() string { return c.single(RoleSurrogateKey) }

// HashMajor returns the major-attribute hash column name, or "".
func (c *Catalog) HashMajor() string { return c.single(RoleHashMajor) }

// HashMinor returns the minor-attribute hash column name, or "".
func (c *Catalog) HashMinor() string { return c.single(RoleHashMinor) }

// EffectiveDate returns the version effective-date column name, or "".
func (c *Catalog) EffectiveDate() string { return c.single(RoleEffectiveDate) }

// EndDate returns the version end-date column name, or "".
func (c *Catalog) EndDate() string { return c.single(RoleEndDate) }

// CurrentIndicator returns the current-version flag column name, or "".
func (c *Catalog) CurrentIndicator() string { return c.single(RoleCurrentIndicator) }

// DeleteIndicator returns the source-delete flag column name, or "".
func (c *Catalog) DeleteIndicator() string { return c.single(RoleDeleteIndicator) }

// TimelinessMarkers returns the timestamp columns subject to recency checks.
func (c *Catalog) TimelinessMarkers() []ColumnSpec {
	return c.withRole(RoleTimelinessMarker)
}

// SystemColumns returns the names of audit/system columns: timeliness
// markers plus every SCD bookkeeping column. These are excluded from
// cross-layer value comparison unless explicitly included.
func (c *Catalog) SystemColumns() []string {
	system := map[string]bool{}
	for _, col := range c.TimelinessMarkers() {
		system[col.Name] = true
	}
	for _, name := range []string{
		c.SurrogateKey(), c.HashMajor(), c.HashMinor(),
		c.EffectiveDate(), c.EndDate(), c.CurrentIndicator(), c.DeleteIndicator(),
	} {
		if name != "" {
			system[name] = true
		}
	}
	var out []string
	for _, col := range c.columns {
		if system[col.Name] {
			out = append(out, col.Name)
		}
	}
	return out
}

// SCDColumns returns the SCD bookkeeping column names present on the table,
// in declaration order. Used for SCD null checks and column-count
// reconciliation between layers.
func (c *Catalog) SCDColumns() []string {
	scd := map[string]bool{}
	for _, name := range []string{
		c.SurrogateKey(), c.HashMajor(), c.HashMinor(),
		c.EffectiveDate(), c.EndDate(), c.CurrentIndicator(), c.DeleteIndicator(),
	} {
		if name != "" {
			scd[name] = true
		}
	}
	var out []string
	for _, col := range c.columns {
		if scd[col.Name] {
			out = append(out, col.Name)
		}
	}
	return out
}
