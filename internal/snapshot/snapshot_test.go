package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/config"
)

func scdCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("customer_dim", []catalog.ColumnSpec{
		{Name: "customer_id", ExternalType: "VARCHAR(20)", Roles: []catalog.Role{catalog.RoleBusinessKey}},
		{Name: "curr_rec_ind", ExternalType: "CHAR(1)", Roles: []catalog.Role{catalog.RoleCurrentIndicator}},
		{Name: "insrt_ts", ExternalType: "TIMESTAMP", Roles: []catalog.Role{catalog.RoleTimelinessMarker}, ExpectedHours: 24},
	})
	require.NoError(t, err)
	return cat
}

func plainCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("orders", []catalog.ColumnSpec{
		{Name: "order_id", ExternalType: "INTEGER", Roles: []catalog.Role{catalog.RoleBusinessKey}},
		{Name: "insrt_ts", ExternalType: "TIMESTAMP", Roles: []catalog.Role{catalog.RoleTimelinessMarker}, ExpectedHours: 24},
	})
	require.NoError(t, err)
	return cat
}

func TestRestrict_All(t *testing.T) {
	s := &Snapshot{Rows: []Row{{"a": 1}, {"a": 2}}}
	assert.Len(t, s.Restrict(BatchAll, scdCatalog(t)), 2)
}

func TestRestrict_LatestByCurrentIndicator(t *testing.T) {
	s := &Snapshot{
		Columns: []string{"customer_id", "curr_rec_ind"},
		Rows: []Row{
			{"customer_id": "1", "curr_rec_ind": "N"},
			{"customer_id": "1", "curr_rec_ind": "Y"},
			{"customer_id": "2", "curr_rec_ind": "Y"},
		},
	}
	rows := s.Restrict(BatchLatest, scdCatalog(t))
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.True(t, IsTrue(r["curr_rec_ind"]))
	}
}

func TestRestrict_LatestByInsertTimestamp(t *testing.T) {
	s := &Snapshot{
		Columns: []string{"order_id", "insrt_ts"},
		Rows: []Row{
			{"order_id": int64(1), "insrt_ts": "2024-06-01 10:00:00"},
			{"order_id": int64(2), "insrt_ts": "2024-06-02 10:00:00"},
			{"order_id": int64(3), "insrt_ts": "2024-06-02 10:00:00"},
		},
	}
	rows := s.Restrict(BatchLatest, plainCatalog(t))
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "2024-06-02 10:00:00", r["insrt_ts"])
	}
}

func TestCheckKeyColumns_Abort(t *testing.T) {
	s := &Snapshot{
		Table:   "orders",
		Layer:   config.LayerLanding,
		Columns: []string{"order_id"},
	}
	err := s.CheckKeyColumns([]string{"order_id", "src_sys_cd"})
	require.Error(t, err)
	assert.True(t, IsValidationAbort(err))
	assert.Contains(t, err.Error(), "src_sys_cd")

	assert.NoError(t, s.CheckKeyColumns([]string{"order_id"}))
}

func TestKeyOf_Composite(t *testing.T) {
	r := Row{"a": "1", "b": "x"}
	assert.Equal(t, "1\x1fx", KeyOf(r, []string{"a", "b"}))
	assert.Equal(t, "x\x1f1", KeyOf(r, []string{"b", "a"}))
}

func TestSortByKey_DoesNotMutate(t *testing.T) {
	rows := []Row{{"k": "b"}, {"k": "a"}, {"k": "c"}}
	sorted := SortByKey(rows, []string{"k"})

	assert.Equal(t, "a", sorted[0]["k"])
	assert.Equal(t, "b", sorted[1]["k"])
	assert.Equal(t, "c", sorted[2]["k"])
	assert.Equal(t, "b", rows[0]["k"], "input order must survive")
}

func TestRender(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "<null>"},
		{"x", "x"},
		{true, "true"},
		{false, "false"},
		{[]byte("bytes"), "bytes"},
		{int64(42), "42"},
		{1.5, "1.5"},
		{2.0, "2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Render(tt.in))
	}
}

func TestIsTrue(t *testing.T) {
	for _, v := range []any{true, "Y", "y", "yes", "true", "1", int64(1), float64(1)} {
		assert.True(t, IsTrue(v), "%v should be truthy", v)
	}
	for _, v := range []any{false, "N", "no", "0", int64(0), nil, "maybe"} {
		assert.False(t, IsTrue(v), "%v should be falsy", v)
	}
}
