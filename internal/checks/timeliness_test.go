package checks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/snapshot"
)

func markedCatalog(t *testing.T, hours int) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("orders", []catalog.ColumnSpec{
		{Name: "order_id", ExternalType: "INTEGER", Roles: []catalog.Role{catalog.RoleBusinessKey}},
		{Name: "loaded_at", ExternalType: "TIMESTAMP", Roles: []catalog.Role{catalog.RoleTimelinessMarker}, ExpectedHours: hours},
	})
	require.NoError(t, err)
	return cat
}

func markedSnap(rows ...snapshot.Row) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Table:   "orders",
		Layer:   config.LayerLanding,
		Columns: []string{"order_id", "loaded_at"},
		Rows:    rows,
	}
}

func TestTimeliness_FreshDataPasses(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := Input{
		Catalog: markedCatalog(t, 24),
		Snapshot: markedSnap(
			snapshot.Row{"order_id": int64(1), "loaded_at": "2024-06-01T10:00:00Z"},
			snapshot.Row{"order_id": int64(2), "loaded_at": "2024-05-20T00:00:00Z"},
		),
		Now: now,
	}
	r := Run(KindTimeliness, in)
	assert.Equal(t, StatusPass, r.Status, "the newest value sets the age, not the oldest")
	assert.Equal(t, int64(1), r.Metrics["markers_checked"])
}

func TestTimeliness_StaleDataFails(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := Input{
		Catalog:  markedCatalog(t, 24),
		Snapshot: markedSnap(snapshot.Row{"order_id": int64(1), "loaded_at": "2024-05-29T10:00:00Z"}),
		Now:      now,
	}
	r := Run(KindTimeliness, in)
	assert.Equal(t, StatusFail, r.Status)
	require.Len(t, r.Sample, 1)
	assert.Contains(t, r.Sample[0], "loaded_at")
}

func TestTimeliness_ZeroBoundSkips(t *testing.T) {
	in := Input{
		Catalog:  markedCatalog(t, 0),
		Snapshot: markedSnap(snapshot.Row{"order_id": int64(1), "loaded_at": "2000-01-01"}),
		Now:      time.Now(),
	}
	r := Run(KindTimeliness, in)
	assert.Equal(t, StatusPass, r.Status)
	assert.True(t, r.Skipped)
}

func TestTimeliness_NoMarkersSkips(t *testing.T) {
	cat, err := catalog.New("orders", []catalog.ColumnSpec{
		{Name: "order_id", ExternalType: "INTEGER"},
	})
	require.NoError(t, err)
	r := Run(KindTimeliness, Input{
		Catalog: cat,
		Snapshot: &snapshot.Snapshot{
			Table: "orders", Layer: config.LayerSource,
			Columns: []string{"order_id"},
		},
		Now: time.Now(),
	})
	assert.Equal(t, StatusPass, r.Status)
	assert.True(t, r.Skipped)
}

func TestTimeliness_UnparseableTimestampsFail(t *testing.T) {
	in := Input{
		Catalog:  markedCatalog(t, 24),
		Snapshot: markedSnap(snapshot.Row{"order_id": int64(1), "loaded_at": "not a time"}),
		Now:      time.Now(),
	}
	r := Run(KindTimeliness, in)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Sample[0], "no parseable timestamps")
}

func TestTimeliness_NativeTimeValues(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := Input{
		Catalog:  markedCatalog(t, 2),
		Snapshot: markedSnap(snapshot.Row{"order_id": int64(1), "loaded_at": now.Add(-time.Hour)}),
		Now:      now,
	}
	r := Run(KindTimeliness, in)
	assert.Equal(t, StatusPass, r.Status)
}
