package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", "json")
	require.NoError(t, err)

	l.Info("hidden")
	l.With("run_id", "r-1").Warn("stage degraded", "stage", "sentinel")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "stage degraded", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "r-1", rec["run_id"])
	assert.Equal(t, "sentinel", rec["stage"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "debug", "text")
	require.NoError(t, err)

	l.Debug("routed", "next", "monitor")
	assert.Contains(t, buf.String(), "msg=routed")
	assert.Contains(t, buf.String(), "next=monitor")
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
