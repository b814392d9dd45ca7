package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"arogya-swarm/backend/internal/config"
	"arogya-swarm/backend/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFrom(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	s := settingsFrom(cfg)
	assert.Equal(t, 3, s.Policy.Attempts)
	assert.Equal(t, 8*time.Second, s.Policy.Timeout)
	assert.Equal(t, 10.0, s.Blend.AgreementThreshold)
	assert.Equal(t, 15, s.Blend.AgreementBonus)
	assert.Equal(t, 95, s.Blend.ConfidenceCap)
	assert.Equal(t, 70, s.Staff.FatigueThreshold)
	assert.Equal(t, 30, s.HistoryDays)
	assert.NoError(t, s.Blend.Validate())
	assert.NoError(t, s.Staff.Validate())
}

func TestLoadSignals(t *testing.T) {
	t.Run("scenario", func(t *testing.T) {
		sig, err := loadSignals("trauma", "")
		require.NoError(t, err)
		assert.Equal(t, 120, sig.AQI)
	})

	t.Run("unknown scenario", func(t *testing.T) {
		_, err := loadSignals("volcano", "")
		assert.Error(t, err)
	})

	t.Run("signals file wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "signals.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"aqi":40,"events":[]}`), 0o600))
		sig, err := loadSignals("pollution", path)
		require.NoError(t, err)
		assert.Equal(t, 40, sig.AQI)
	})

	t.Run("signals file with unknown key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "signals.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"aqi":40,"likelihood":"critical"}`), 0o600))
		_, err := loadSignals("", path)
		var violation *state.SchemaViolation
		assert.ErrorAs(t, err, &violation)
	})
}

func TestRootCommands(t *testing.T) {
	root := newRoot()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "run"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
