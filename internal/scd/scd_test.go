package scd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavet/datavet/internal/catalog"
	"github.com/datavet/datavet/internal/config"
	"github.com/datavet/datavet/internal/snapshot"
)

func dimCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("customer_dim", []catalog.ColumnSpec{
		{Name: "customer_sk", ExternalType: "BIGINT", Roles: []catalog.Role{catalog.RoleSurrogateKey}},
		{Name: "customer_id", ExternalType: "INTEGER", Roles: []catalog.Role{catalog.RoleBusinessKey}},
		{Name: "name", ExternalType: "VARCHAR(50)"},
		{Name: "hash_major", ExternalType: "CHAR(32)", Roles: []catalog.Role{catalog.RoleHashMajor}},
		{Name: "eff_date", ExternalType: "DATE", Roles: []catalog.Role{catalog.RoleEffectiveDate}},
		{Name: "end_date", ExternalType: "DATE", Roles: []catalog.Role{catalog.RoleEndDate}},
		{Name: "is_current", ExternalType: "CHAR(1)", Roles: []catalog.Role{catalog.RoleCurrentIndicator}},
		{Name: "is_deleted", ExternalType: "CHAR(1)", Roles: []catalog.Role{catalog.RoleDeleteIndicator}},
	})
	require.NoError(t, err)
	return cat
}

func dimInfo() config.SCDInfo {
	return config.SCDInfo{
		Enabled:          true,
		BusinessKey:      []string{"customer_id"},
		SurrogateKey:     "customer_sk",
		HashMajor:        "hash_major",
		EffectiveDate:    "eff_date",
		EndDate:          "end_date",
		CurrentIndicator: "is_current",
		DeleteIndicator:  "is_deleted",
	}
}

func landingSnap(rows ...snapshot.Row) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Table: "customer_dim", Layer: config.LayerLanding,
		Columns: []string{"customer_id", "name", "hash_major", "is_deleted"},
		Rows:    rows,
	}
}

func warehouseSnap(rows ...snapshot.Row) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Table: "customer_dim", Layer: config.LayerWarehouse,
		Columns: []string{"customer_sk", "customer_id", "name", "hash_major", "eff_date", "end_date", "is_current", "is_deleted"},
		Rows:    rows,
	}
}

// version builds one warehouse row with the chain columns filled in.
func version(sk, id int64, hash, eff, end, current string) snapshot.Row {
	return snapshot.Row{
		"customer_sk": sk, "customer_id": id, "name": "x",
		"hash_major": hash, "eff_date": eff, "end_date": end,
		"is_current": current, "is_deleted": "N",
	}
}

func TestValidate_InsertObservedAndExpected(t *testing.T) {
	in := Input{
		Catalog: dimCatalog(t),
		Info:    dimInfo(),
		Landing: landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "aaa", "is_deleted": "N"}),
		Prior:   warehouseSnap(),
		Current: warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, 1, out.Keys)
	assert.Equal(t, int64(1), out.Transitions[TransitionInsert])
}

func TestValidate_UpdateGrowsChain(t *testing.T) {
	in := Input{
		Catalog: dimCatalog(t),
		Info:    dimInfo(),
		Landing: landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "bbb", "is_deleted": "N"}),
		Prior:   warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
		Current: warehouseSnap(
			version(100, 1, "aaa", "2024-01-01", "2024-06-01", "N"),
			version(101, 1, "bbb", "2024-06-01", DefaultOpenEndDate, "Y"),
		),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, int64(1), out.Transitions[TransitionUpdate])
}

func TestValidate_MissedUpdateIsMismatch(t *testing.T) {
	// Landing demands a new major hash but the warehouse kept the old one.
	in := Input{
		Catalog: dimCatalog(t),
		Info:    dimInfo(),
		Landing: landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "bbb", "is_deleted": "N"}),
		Prior:   warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
		Current: warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.False(t, out.OK())
	require.Len(t, out.Mismatches, 1)
	m := out.Mismatches[0]
	assert.Equal(t, TransitionUpdate, m.Expected)
	assert.Equal(t, TransitionNoop, m.Observed)
	assert.Equal(t, "aaa", m.HashBefore)
	assert.Equal(t, "aaa", m.HashAfter)
	assert.Contains(t, m.Detail, "hash_major")
}

func TestValidate_DeleteByIndicator(t *testing.T) {
	landed := snapshot.Row{"customer_id": int64(1), "hash_major": "aaa", "is_deleted": "Y"}
	closed := version(100, 1, "aaa", "2024-01-01", "2024-06-01", "N")
	in := Input{
		Catalog: dimCatalog(t),
		Info:    dimInfo(),
		Landing: landingSnap(landed),
		Prior:   warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
		Current: warehouseSnap(closed),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, int64(1), out.Transitions[TransitionDelete])
}

func TestValidate_DeleteByAbsence(t *testing.T) {
	info := dimInfo()
	info.DeleteDetection = DeleteByAbsence
	in := Input{
		Catalog: dimCatalog(t),
		Info:    info,
		Landing: landingSnap(),
		Prior:   warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
		Current: warehouseSnap(version(100, 1, "aaa", "2024-01-01", "2024-06-01", "N")),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, int64(1), out.Transitions[TransitionDelete])
}

func TestValidate_NoopKeyUntouched(t *testing.T) {
	cur := version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")
	in := Input{
		Catalog: dimCatalog(t),
		Info:    dimInfo(),
		Landing: landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "aaa", "is_deleted": "N"}),
		Prior:   warehouseSnap(cur),
		Current: warehouseSnap(cur),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, int64(1), out.Transitions[TransitionNoop])
}

func TestValidate_WithoutPriorVerifiesFinalState(t *testing.T) {
	in := Input{
		Catalog: dimCatalog(t),
		Info:    dimInfo(),
		Landing: landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "bbb", "is_deleted": "N"}),
		Current: warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.False(t, out.OK(), "current hash does not reflect the batch")
	require.Len(t, out.Mismatches, 1)
	assert.Equal(t, TransitionNoop, out.Mismatches[0].Expected)
	assert.Equal(t, TransitionUpdate, out.Mismatches[0].Observed)
}

func TestValidate_MissingMetadataFailsFast(t *testing.T) {
	cat, err := catalog.New("flat", []catalog.ColumnSpec{
		{Name: "id", ExternalType: "INTEGER", Roles: []catalog.Role{catalog.RoleBusinessKey}},
	})
	require.NoError(t, err)

	_, err = Validate(Input{
		Catalog: cat,
		Info:    config.SCDInfo{Enabled: true},
		Landing: landingSnap(),
		Current: warehouseSnap(),
	})
	require.Error(t, err)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, config.ErrCodeSCDMetadata, cfgErr.Code)
	assert.Contains(t, err.Error(), "hash_major")
}

func TestValidate_MinorPolicyRequiredWithHashMinor(t *testing.T) {
	cat, err := catalog.New("customer_dim", []catalog.ColumnSpec{
		{Name: "customer_id", ExternalType: "INTEGER", Roles: []catalog.Role{catalog.RoleBusinessKey}},
		{Name: "hash_major", ExternalType: "CHAR(32)", Roles: []catalog.Role{catalog.RoleHashMajor}},
		{Name: "hash_minor", ExternalType: "CHAR(32)", Roles: []catalog.Role{catalog.RoleHashMinor}},
		{Name: "eff_date", ExternalType: "DATE", Roles: []catalog.Role{catalog.RoleEffectiveDate}},
		{Name: "end_date", ExternalType: "DATE", Roles: []catalog.Role{catalog.RoleEndDate}},
		{Name: "is_current", ExternalType: "CHAR(1)", Roles: []catalog.Role{catalog.RoleCurrentIndicator}},
		{Name: "is_deleted", ExternalType: "CHAR(1)", Roles: []catalog.Role{catalog.RoleDeleteIndicator}},
	})
	require.NoError(t, err)

	info := dimInfo()
	info.HashMinor = "hash_minor"
	info.MinorPolicy = ""
	_, err = Validate(Input{Catalog: cat, Info: info, Landing: landingSnap(), Current: warehouseSnap()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minor_policy")
}

func TestChainInvariants(t *testing.T) {
	base := func() Input {
		return Input{Catalog: dimCatalog(t), Info: dimInfo(), Landing: landingSnap()}
	}

	t.Run("two current versions", func(t *testing.T) {
		in := base()
		in.Current = warehouseSnap(
			version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y"),
			version(101, 1, "bbb", "2024-06-01", DefaultOpenEndDate, "Y"),
		)
		out, err := Validate(in)
		require.NoError(t, err)
		assert.Contains(t, out.Violations, "key=1: 2 current versions")
	})

	t.Run("current without sentinel", func(t *testing.T) {
		in := base()
		in.Current = warehouseSnap(version(100, 1, "aaa", "2024-01-01", "2024-06-01", "Y"))
		out, err := Validate(in)
		require.NoError(t, err)
		require.NotEmpty(t, out.Violations)
		assert.Contains(t, out.Violations[0], "not the open sentinel")
	})

	t.Run("effective after end", func(t *testing.T) {
		in := base()
		in.Current = warehouseSnap(version(100, 1, "aaa", "2024-06-01", "2024-01-01", "N"))
		out, err := Validate(in)
		require.NoError(t, err)
		require.NotEmpty(t, out.Violations)
		assert.Contains(t, out.Violations[0], "after end date")
	})

	t.Run("overlapping versions", func(t *testing.T) {
		in := base()
		in.Current = warehouseSnap(
			version(100, 1, "aaa", "2024-01-01", "2024-07-01", "N"),
			version(101, 1, "bbb", "2024-06-01", DefaultOpenEndDate, "Y"),
		)
		out, err := Validate(in)
		require.NoError(t, err)
		assert.Contains(t, out.Violations,
			"key=1: version [2024-01-01, 2024-07-01] overlaps [2024-06-01, 9999-12-31]")
	})

	t.Run("surrogate key reused across hash change", func(t *testing.T) {
		in := base()
		in.Landing = landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "bbb", "is_deleted": "N"})
		in.Current = warehouseSnap(
			version(100, 1, "aaa", "2024-01-01", "2024-06-01", "N"),
			version(100, 1, "bbb", "2024-06-01", DefaultOpenEndDate, "Y"),
		)
		out, err := Validate(in)
		require.NoError(t, err)
		assert.Contains(t, out.Violations, "key=1: surrogate key 100 reused across a hash_major change")
	})

	t.Run("unchanged hash keeps the surrogate key", func(t *testing.T) {
		in := base()
		in.Landing = landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "aaa", "is_deleted": "N"})
		in.Current = warehouseSnap(
			version(100, 1, "aaa", "2024-01-01", "2024-06-01", "N"),
			version(100, 1, "aaa", "2024-06-01", DefaultOpenEndDate, "Y"),
		)
		out, err := Validate(in)
		require.NoError(t, err)
		assert.Empty(t, out.Violations)
	})

	t.Run("null system column", func(t *testing.T) {
		in := base()
		row := version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")
		row["eff_date"] = nil
		in.Current = warehouseSnap(row)
		out, err := Validate(in)
		require.NoError(t, err)
		require.NotEmpty(t, out.Violations)
		assert.Contains(t, out.Violations[0], "system column eff_date is null")
	})

	t.Run("clean chain", func(t *testing.T) {
		in := base()
		in.Landing = landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "bbb", "is_deleted": "N"})
		in.Current = warehouseSnap(
			version(100, 1, "aaa", "2024-01-01", "2024-06-01", "N"),
			version(101, 1, "bbb", "2024-06-01", DefaultOpenEndDate, "Y"),
		)
		out, err := Validate(in)
		require.NoError(t, err)
		assert.Empty(t, out.Violations)
	})
}

var loadDay = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestValidate_LoadDateStampsInsertedVersion(t *testing.T) {
	in := Input{
		Catalog:  dimCatalog(t),
		Info:     dimInfo(),
		LoadDate: loadDay,
		Landing:  landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "aaa", "is_deleted": "N"}),
		Prior:    warehouseSnap(),
		Current:  warehouseSnap(version(100, 1, "aaa", "2024-03-15", DefaultOpenEndDate, "Y")),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	require.Len(t, out.Violations, 1)
	assert.Contains(t, out.Violations[0], "effective date 2024-03-15 is not the load date 2024-06-01")
}

func TestValidate_LoadDateStampsClosedVersion(t *testing.T) {
	in := Input{
		Catalog:  dimCatalog(t),
		Info:     dimInfo(),
		LoadDate: loadDay,
		Landing:  landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "aaa", "is_deleted": "Y"}),
		Prior:    warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
		Current:  warehouseSnap(version(100, 1, "aaa", "2024-01-01", "2024-05-20", "N")),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	require.Len(t, out.Violations, 1)
	assert.Contains(t, out.Violations[0], "end date 2024-05-20 is not the load date 2024-06-01")
}

func TestValidate_LoadDateCleanUpdate(t *testing.T) {
	in := Input{
		Catalog:  dimCatalog(t),
		Info:     dimInfo(),
		LoadDate: loadDay,
		Landing:  landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "bbb", "is_deleted": "N"}),
		Prior:    warehouseSnap(version(100, 1, "aaa", "2024-01-01", DefaultOpenEndDate, "Y")),
		Current: warehouseSnap(
			version(100, 1, "aaa", "2024-01-01", "2024-06-01", "N"),
			version(101, 1, "bbb", "2024-06-01", DefaultOpenEndDate, "Y"),
		),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.True(t, out.OK(), "update stamped with the load date on both sides")
}

func TestValidate_ZeroLoadDateSkipsDateChecks(t *testing.T) {
	in := Input{
		Catalog: dimCatalog(t),
		Info:    dimInfo(),
		Landing: landingSnap(snapshot.Row{"customer_id": int64(1), "hash_major": "aaa", "is_deleted": "N"}),
		Prior:   warehouseSnap(),
		Current: warehouseSnap(version(100, 1, "aaa", "2024-03-15", DefaultOpenEndDate, "Y")),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	assert.Empty(t, out.Violations)
}

func TestValidate_MismatchesInKeyOrder(t *testing.T) {
	in := Input{
		Catalog: dimCatalog(t),
		Info:    dimInfo(),
		Landing: landingSnap(
			snapshot.Row{"customer_id": int64(2), "hash_major": "xxx", "is_deleted": "N"},
			snapshot.Row{"customer_id": int64(1), "hash_major": "yyy", "is_deleted": "N"},
		),
		Prior:   warehouseSnap(),
		Current: warehouseSnap(),
	}
	out, err := Validate(in)
	require.NoError(t, err)
	require.Len(t, out.Mismatches, 2)
	assert.Equal(t, "1", out.Mismatches[0].BusinessKey)
	assert.Equal(t, "2", out.Mismatches[1].BusinessKey)
	assert.Equal(t, TransitionInsert, out.Mismatches[0].Expected)
	assert.Equal(t, TransitionNoop, out.Mismatches[0].Observed)
}
