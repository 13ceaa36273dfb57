package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsCreateEveryTable(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "migrations/0001_init.sql", names[0])

	body, err := migrations.ReadFile(names[0])
	require.NoError(t, err)
	for _, table := range []string{"products", "shipment_product", "orders", "orders_product"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	_, err := Connect(t.Context(), "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "empty"))
}
