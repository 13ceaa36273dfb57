package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("order created", zap.String("order_id", "o1"))
	require.NoError(t, logger.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "order created", line["msg"])
	assert.Equal(t, "o1", line["order_id"])
	assert.Equal(t, "inventory-orders", line["service.name"])
	assert.Contains(t, line, "ts")
}

func TestNewLoggerWithOtel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", true)
	require.NoError(t, err)
	logger.Warn("restock after cancel failed")
	assert.Contains(t, buf.String(), "restock after cancel failed")
}

func TestNewLoggerRejectsLevel(t *testing.T) {
	_, err := New("chatty", false)
	assert.Error(t, err)
}
