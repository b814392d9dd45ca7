package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"arogya-swarm/backend/internal/forecast"
	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func escalated(likelihood models.Likelihood) state.State {
	st := state.New(models.ExternalSignals{AQI: 350})
	st.SurgePrediction = &models.SurgePrediction{
		Likelihood:          likelihood,
		ConfidenceScore:     80,
		AffectedDepartments: []string{"Respiratory"},
		TimeHorizon:         models.Horizon24h,
	}
	return *st
}

func TestOrchestrator_LowShortCircuits(t *testing.T) {
	r := new(MockReasoner)
	o := NewOrchestrator(r, nil, retry.DefaultPolicy(), nil)

	u, err := o.Execute(context.Background(), escalated(models.LikelihoodLow))
	require.NoError(t, err)
	assert.Equal(t, []string{"[Orchestrator] Situation normal, no action required"}, u.Messages)
	assert.Empty(t, u.Recommendations)
	r.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestOrchestrator_PlaybookFallback(t *testing.T) {
	r := new(MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).Return("Thought: I should act quickly.", nil)
	o := NewOrchestrator(r, newResources(), retry.DefaultPolicy(), nil)
	o.now = func() time.Time { return time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC) }

	u, err := o.Execute(context.Background(), escalated(models.LikelihoodHigh))
	require.NoError(t, err)

	require.Len(t, u.Recommendations, 3)
	assert.Equal(t, "Move 5 nurses from OPD to Respiratory", u.Recommendations[0].Title)
	assert.Equal(t, -16000.0, u.Recommendations[1].EstimatedCostImpact)
	for _, rec := range u.Recommendations {
		assert.Equal(t, models.StatusPending, rec.Status)
		assert.Equal(t, StageOrchestrator, rec.CreatedByAgent)
		assert.Equal(t, time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC), rec.CreatedAt)
	}
	assert.Equal(t, NextDispatch, *u.NextAction)
}

func TestOrchestrator_MissingPredictionIsFatal(t *testing.T) {
	o := NewOrchestrator(new(MockReasoner), nil, retry.DefaultPolicy(), nil)
	_, err := o.Execute(context.Background(), *state.New(models.ExternalSignals{}))
	assert.True(t, workflow.IsFatal(err))
}

func TestParseRecommendations(t *testing.T) {
	raw := "```json\n[" +
		`{"type":"supply_order","title":"Rush N95 masks","priority":"CRITICAL","cost_action":"emergency_procurement"},` +
		`{"type":"bed_booking","title":"Reserve beds"},` +
		`{"type":"patient_advisory","title":"","priority":"low"},` +
		`{"type":"staff_reallocation","title":"Cancel leave","priority":"urgent","cost_action":"avoid_overtime"}` +
		"]\n```"

	recs, err := parseRecommendations(raw)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.PriorityCritical, recs[0].Priority)
	assert.Equal(t, -25000.0, recs[0].EstimatedCostImpact)
	assert.Equal(t, models.PriorityMedium, recs[1].Priority)
	assert.Equal(t, 15000.0, recs[1].EstimatedCostImpact)

	_, err = parseRecommendations("no plan")
	assert.Error(t, err)
}

func TestCostImpact(t *testing.T) {
	assert.Equal(t, 50000.0, CostImpact("prevent_diversion"))
	assert.Equal(t, -15000.0, CostImpact(" Overtime_Staff "))
	assert.Zero(t, CostImpact("unknown"))
}

func TestSentinel_MisconfiguredIsFatal(t *testing.T) {
	s := NewSentinel(nil, new(MockForecaster), nil, nil, retry.DefaultPolicy(), 30, nil)
	_, err := s.Execute(context.Background(), *state.New(models.ExternalSignals{}))

	var fatal *workflow.FatalStageError
	assert.ErrorAs(t, err, &fatal)
}

func TestSentinel_ForecastFailureSkipsBonus(t *testing.T) {
	r := new(MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).Return(assessmentJSON("high"), nil)
	f := new(MockForecaster)
	f.On("Forecast", mock.Anything, mock.Anything).Return(models.Forecast{}, errors.New("sidecar down"))
	blender, err := forecast.NewBlender(forecast.DefaultConfig(), nil)
	require.NoError(t, err)

	s := NewSentinel(r, f, nil, blender, fastSettings().Policy, 30, nil)
	u, err := s.Execute(context.Background(), *state.New(models.ExternalSignals{AQI: 250}))
	require.NoError(t, err)

	require.NotNil(t, u.SurgePrediction)
	assert.Equal(t, 70, u.SurgePrediction.ConfidenceScore)
	assert.Nil(t, u.SurgePrediction.StatisticalForecast)
	assert.Equal(t, NextEscalate, *u.NextAction)
	assert.Equal(t, []string{"[Sentinel] Surge prediction: high"}, u.Messages)
}

func TestHistoricalPattern(t *testing.T) {
	assert.Equal(t, defaultPattern, historicalPattern(nil))

	series := make([]models.CountPoint, 10)
	for i := range series {
		series[i].Count = 100
	}
	series[9].Count = 150
	assert.Equal(t, "peak daily arrivals 150 against a 10-day mean of 105 (+43%)", historicalPattern(series))
}
