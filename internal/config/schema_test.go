package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchema_AcceptsValidDocument(t *testing.T) {
	err := ValidateSchema("orders.yaml", []byte(`
table: orders
load_strategy: full
layers:
  source: {schema: raw, table: orders}
columns_info:
  expected_columns: ["order_id INTEGER"]
scd_info:
  enabled: false
`))
	assert.NoError(t, err)
}

func TestValidateSchema_RejectsBadEnum(t *testing.T) {
	err := ValidateSchema("orders.yaml", []byte(`
load_strategy: incremental
`))
	require.Error(t, err)
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeSchema, cfgErr.Code)
}

func TestValidateSchema_RejectsWrongType(t *testing.T) {
	err := ValidateSchema("orders.yaml", []byte(`
trigger_counter: "three"
`))
	require.Error(t, err)
}

func TestValidateSchema_RejectsNegativeBounds(t *testing.T) {
	err := ValidateSchema("orders.yaml", []byte(`
tolerances:
  consistency: -1
`))
	require.Error(t, err)
}

func TestValidateSchema_RejectsBadMinorPolicy(t *testing.T) {
	err := ValidateSchema("orders.yaml", []byte(`
scd_info:
  minor_policy: inplace
`))
	require.Error(t, err)
}
