package simulation

import (
	"context"
	"testing"

	"arogya-swarm/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"dengue", "pollution", "trauma"}, []string{list[0].Key, list[1].Key, list[2].Key})

	pollution, ok := c.Get("Pollution")
	require.True(t, ok)
	assert.Equal(t, 350, pollution.AQI)
	assert.Equal(t, 45.0, pollution.ExpectedSurgePct)
	assert.Equal(t, models.LikelihoodHigh, pollution.Severity)
	assert.Equal(t, []string{"Emergency", "Respiratory", "Pediatrics"}, pollution.AffectedDepartments)

	trauma, _ := c.Get("trauma")
	assert.Equal(t, models.LikelihoodCritical, trauma.Severity)
	assert.Equal(t, 60.0, trauma.ExpectedSurgePct)
}

func TestLookup_FallsBack(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)
	assert.Equal(t, "pollution", c.Lookup("earthquake").Key)
}

func TestSignals_AreCopies(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	src := c.NewSource("dengue")
	sig, err := src.Signals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90, sig.AQI)
	assert.Equal(t, "heavy rain", sig.Weather.Condition)

	sig.Events[0] = "changed"
	sig.Sentiment["fever"] = 0
	again, _ := src.Signals(context.Background())
	assert.Equal(t, "Waterlogging in low-lying wards", again.Events[0])
	assert.Equal(t, 0.71, again.Sentiment["fever"])
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("scenarios: {}"))
	assert.Error(t, err)

	_, err = Parse([]byte("scenarios:\n  flood:\n    severity: apocalyptic\n"))
	assert.Error(t, err)

	_, err = Parse([]byte(":::"))
	assert.Error(t, err)
}
