// Package synth generates disposable test rows for pipeline dry-runs.
//
// Generated rows are tagged in a discard column so downstream cleanup can
// purge them; generation is refused outright for OPCO-governed tables.
package synth

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/snapshot"
)

// ErrOPCOGoverned is returned for tables under OPCO data governance.
// The gate is absolute: no flag combination overrides it.
var ErrOPCOGoverned = errors.New("synthetic data refused: table is OPCO governed")

// DefaultRows is generated when the configuration leaves rows unset.
const DefaultRows = 10

// specialChars are the characters withheld when the configuration asks
// for plain values (targets that choke on quoting or delimiters).
const specialChars = `'"\;%_`

// Generator produces synthetic snapshots for one table.
type Generator struct {
	cat *catalog.Catalog
	cfg config.SyntheticData
	rng *rand.Rand
}

// New builds a generator. seed pins the output for reproducible runs;
// callers wanting fresh data pass a time-derived seed.
func New(cat *catalog.Catalog, cfg config.SyntheticData, seed int64) *Generator {
	return &Generator{cat: cat, cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Generate produces the configured number of rows. Unique columns get
// collision-free values; every row carries the discard tag when one is
// configured.
func (g *Generator) Generate() ([]snapshot.Row, error) {
	if g.cfg.OPCOGoverned {
		return nil, ErrOPCOGoverned
	}
	if !g.cfg.Enabled {
		return nil, fmt.Errorf("synthetic data not enabled for this table")
	}

	n := g.cfg.Rows
	if n <= 0 {
		n = DefaultRows
	}

	unique := map[string]bool{}
	for _, c := range g.cfg.UniqueColumns {
		unique[c] = true
	}

	rows := make([]snapshot.Row, 0, n)
	seen := map[string]map[string]bool{}
	for i := 0; i < n; i++ {
		row := snapshot.Row{}
		for _, col := range g.cat.Columns() {
			v := g.value(col, i)
			if unique[col.Name] {
				v = g.uniquify(col, v, i, seen)
			}
			row[col.Name] = v
		}
		if g.cfg.DiscardColumn != "" {
			row[g.cfg.DiscardColumn] = g.cfg.DiscardTag
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// value draws one column value of the column's internal type.
func (g *Generator) value(col catalog.ColumnSpec, i int) any {
	switch col.InternalType.Kind {
	case catalog.KindInt:
		return int64(g.rng.Intn(1_000_000))
	case catalog.KindDecimal:
		scale := col.InternalType.Scale
		if scale <= 0 {
			scale = 2
		}
		d := decimal.NewFromInt(int64(g.rng.Intn(100_000))).Shift(int32(-scale))
		return d.String()
	case catalog.KindBool:
		if g.rng.Intn(2) == 0 {
			return "N"
		}
		return "Y"
	case catalog.KindDate:
		return fmt.Sprintf("2024-%02d-%02d", 1+g.rng.Intn(12), 1+g.rng.Intn(28))
	case catalog.KindTimestamp:
		return fmt.Sprintf("2024-%02d-%02d %02d:%02d:%02d",
			1+g.rng.Intn(12), 1+g.rng.Intn(28), g.rng.Intn(24), g.rng.Intn(60), g.rng.Intn(60))
	default:
		return g.text(col)
	}
}

// text draws a string bounded by the declared length.
func (g *Generator) text(col catalog.ColumnSpec) string {
	max := col.InternalType.Length
	if max <= 0 || max > 32 {
		max = 32
	}
	alphabet := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	if !g.cfg.ExcludeSpecialChars {
		alphabet += specialChars
	}
	n := 1 + g.rng.Intn(max)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[g.rng.Intn(len(alphabet))])
	}
	return b.String()
}

// uniquify replaces a colliding value. String columns wide enough take a
// UUID; everything else gets a sequence-derived value.
func (g *Generator) uniquify(col catalog.ColumnSpec, v any, i int, seen map[string]map[string]bool) any {
	if seen[col.Name] == nil {
		seen[col.Name] = map[string]bool{}
	}
	taken := seen[col.Name]

	candidate := v
	for attempt := 0; taken[snapshot.Render(candidate)]; attempt++ {
		switch col.InternalType.Kind {
		case catalog.KindInt:
			candidate = int64(i*1_000_000 + attempt)
		case catalog.KindString:
			if col.InternalType.Length == 0 || col.InternalType.Length >= 36 {
				candidate = uuid.NewString()
			} else {
				candidate = fmt.Sprintf("%s%d", trimTo(snapshot.Render(v), col.InternalType.Length-6), i)
			}
		default:
			candidate = fmt.Sprintf("%s-%d", snapshot.Render(v), i)
		}
	}
	taken[snapshot.Render(candidate)] = true
	return candidate
}

func trimTo(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
