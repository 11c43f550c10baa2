package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/snapshot"
)

// Snap builds an in-memory snapshot from row literals. Columns are taken
// in the given order; rows omit nil-valued columns freely.
func Snap(table string, layer config.Layer, columns []string, rows ...snapshot.Row) *snapshot.Snapshot {
	return &snapshot.Snapshot{Table: table, Layer: layer, Columns: columns, Rows: rows}
}

// MemConnector serves pre-built snapshots keyed by layer, standing in
// for a database connector in runner tests.
//
// Thread-safety: reads are concurrent; registration must finish first.
type MemConnector struct {
	mu    sync.Mutex
	snaps map[string]*snapshot.Snapshot
	fail  map[string]error

	// Reads records every (table, layer) read, in arrival order.
	Reads []string
}

// NewMemConnector creates an empty connector.
func NewMemConnector() *MemConnector {
	return &MemConnector{
		snaps: map[string]*snapshot.Snapshot{},
		fail:  map[string]error{},
	}
}

func key(table string, layer config.Layer) string {
	return table + "/" + string(layer)
}

// Put registers a snapshot for (table, layer).
func (c *MemConnector) Put(s *snapshot.Snapshot) *MemConnector {
	c.snaps[key(s.Table, s.Layer)] = s
	return c
}

// Fail makes reads of (table, layer) return the given error.
func (c *MemConnector) Fail(table string, layer config.Layer, err error) *MemConnector {
	c.fail[key(table, layer)] = err
	return c
}

// Read implements snapshot.Connector.
func (c *MemConnector) Read(_ context.Context, table string, layer config.Layer, _ config.LayerRef) (*snapshot.Snapshot, error) {
	c.mu.Lock()
	c.Reads = append(c.Reads, key(table, layer))
	c.mu.Unlock()

	if err, ok := c.fail[key(table, layer)]; ok {
		return nil, &snapshot.ConnectorError{Layer: layer, Table: table, Err: err}
	}
	s, ok := c.snaps[key(table, layer)]
	if !ok {
		return nil, &snapshot.ConnectorError{Layer: layer, Table: table,
			Err: fmt.Errorf("no snapshot registered")}
	}
	return s, nil
}

// Close implements snapshot.Connector.
func (c *MemConnector) Close() error { return nil }
