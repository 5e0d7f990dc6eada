package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json")

	log.WithFarmerID("EFN-PUN-1A2B3C4D").WithTransactionID("TXN-20240101-ABCDEF").Info("evaluated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "evaluated", entry["msg"])
	assert.Equal(t, "EFN-PUN-1A2B3C4D", entry["efn"])
	assert.Equal(t, "TXN-20240101-ABCDEF", entry["transaction_id"])
}

func TestJSONLogger_ErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	log.Error("write failed", "error", "disk full")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "disk full", entry["error"])
	assert.NotEmpty(t, entry["stack"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithContext_TraceID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	ctx := ContextWithTraceID(context.Background(), "req-42")
	log.WithContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), `"trace_id":"req-42"`)
	assert.Same(t, log, log.WithContext(context.Background()))
}
