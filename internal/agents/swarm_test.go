package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReasoner satisfies services.Reasoner
type MockReasoner struct {
	mock.Mock
}

func (m *MockReasoner) Invoke(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockForecaster satisfies services.Forecaster
type MockForecaster struct {
	mock.Mock
}

func (m *MockForecaster) Forecast(ctx context.Context, series []models.CountPoint) (models.Forecast, error) {
	args := m.Called(ctx, series)
	return args.Get(0).(models.Forecast), args.Error(1)
}

// MockResources satisfies repository.ResourceProvider
type MockResources struct {
	mock.Mock
}

func (m *MockResources) GetStaffAvailability(ctx context.Context) (models.StaffAvailability, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.StaffAvailability), args.Error(1)
}

func (m *MockResources) GetInventoryStatus(ctx context.Context, criticalOnly bool) ([]models.InventoryItem, error) {
	args := m.Called(ctx, criticalOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}

func (m *MockResources) GetPatientQueueLength(ctx context.Context) (models.PatientQueue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.PatientQueue), args.Error(1)
}

func prompted(marker string) any {
	return mock.MatchedBy(func(prompt string) bool { return strings.Contains(prompt, marker) })
}

func assessmentJSON(likelihood string) string {
	return fmt.Sprintf(`{"surge_likelihood":%q,"confidence_score":70,"predicted_patient_increase":"40%%","departments_affected":["ER","Respiratory"],"time_horizon":"24h","reasoning":"AQI severe"}`, likelihood)
}

const planJSON = `{"recommendations":[
 {"type":"staff_reallocation","title":"Move 2 nurses from OPD to ER","priority":"high","cost_action":"overtime_staff","reasoning":"ER load"},
 {"type":"supply_order","title":"Order O2 cylinders","priority":"critical","estimated_cost_impact":-16000,"reasoning":"stock low"},
 {"type":"patient_advisory","title":"SMS Alert","priority":"medium","estimated_cost_impact":0,"reasoning":"long waits"}]}`

func newResources() *MockResources {
	res := new(MockResources)
	res.On("GetStaffAvailability", mock.Anything).Return(models.StaffAvailability{
		"evening_nurse": {Shift: "evening", Role: "nurse", Available: 2, Total: 2, AvgFatigue: 45, Members: []models.StaffMember{
			{Name: "Nurse Asha", Department: "OPD", Status: "available", FatigueScore: 40},
			{Name: "Nurse Kavya", Department: "ER", Status: "available", FatigueScore: 50},
		}},
	}, nil).Maybe()
	res.On("GetInventoryStatus", mock.Anything, true).Return([]models.InventoryItem{
		{Item: "O2 Cylinders", Current: 5, Threshold: 20, Supplier: "MedSupply India", UnitCost: 800, Status: "critical", Shortage: 15},
	}, nil).Maybe()
	res.On("GetPatientQueueLength", mock.Anything).Return(models.PatientQueue{"ER": {Total: 8, AvgWait: 60}}, nil).Maybe()
	return res
}

func newReasoner(likelihood string) *MockReasoner {
	r := new(MockReasoner)
	r.On("Invoke", mock.Anything, prompted("Sentinel Agent")).Return(assessmentJSON(likelihood), nil).Maybe()
	r.On("Invoke", mock.Anything, prompted("Orchestrator Agent")).Return(planJSON, nil).Maybe()
	r.On("Invoke", mock.Anything, prompted("Staff Reallocation Agent")).Return(
		`{"staff_to_move":[{"name":"Nurse Asha","from":"OPD","to":"ER","shift":"evening"}],"cost_impact":-5000}`, nil).Maybe()
	r.On("Invoke", mock.Anything, prompted("Supply Chain Agent")).Return(
		`{"order_items":[{"item":"O2 Cylinders","quantity":20}],"priority":"emergency"}`, nil).Maybe()
	r.On("Invoke", mock.Anything, prompted("Patient Advisory Agent")).Return(
		`{"messages":{"en":"Expect long waits","hi":"लंबा इंतजार"}}`, nil).Maybe()
	return r
}

func newForecaster() *MockForecaster {
	f := new(MockForecaster)
	f.On("Forecast", mock.Anything, mock.Anything).Return(models.Forecast{PredictedIncreasePct: 35}, nil).Maybe()
	return f
}

func fastSettings() Settings {
	s := DefaultSettings()
	s.Policy = retry.Policy{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Timeout: time.Second}
	return s
}

func newGraph(t *testing.T, reasoner *MockReasoner) *workflow.Graph {
	t.Helper()
	g, err := NewSwarm(Deps{Reasoner: reasoner, Forecaster: newForecaster(), Resources: newResources()}, fastSettings())
	require.NoError(t, err)
	return g
}

func TestSwarm_CriticalSurgeEscalates(t *testing.T) {
	g := newGraph(t, newReasoner("critical"))

	res, err := g.Run(context.Background(), state.New(models.ExternalSignals{AQI: 350}))
	require.NoError(t, err)

	assert.Equal(t, []string{StageSentinel, StageOrchestrator, StageActionAgents, workflow.End}, res.Path)
	assert.Empty(t, res.Degraded)

	final := res.State
	require.NotEmpty(t, final.Recommendations)
	require.Len(t, final.ActionResults, len(final.Recommendations))
	for i, r := range final.ActionResults {
		assert.Equal(t, final.Recommendations[i], r.Recommendation)
		assert.False(t, r.Failed(), r.Error)
		require.NotNil(t, r.ProducedArtifact)
	}
	assert.Equal(t, -15000.0, final.Recommendations[0].EstimatedCostImpact)
	assert.Equal(t, models.StatusPending, final.Recommendations[0].Status)
	assert.GreaterOrEqual(t, len(final.Messages), 3)

	require.NotNil(t, final.SurgePrediction)
	assert.Equal(t, 85, final.SurgePrediction.ConfidenceScore)
	assert.Equal(t, StageActionAgents, final.CurrentAgent)
}

func TestSwarm_LowSurgeOnlyMonitors(t *testing.T) {
	g := newGraph(t, newReasoner("low"))

	res, err := g.Run(context.Background(), state.New(models.ExternalSignals{AQI: 40}))
	require.NoError(t, err)

	assert.Equal(t, []string{StageSentinel, StageMonitor, workflow.End}, res.Path)
	assert.Empty(t, res.State.Recommendations)
	assert.Empty(t, res.State.ActionResults)
	assert.Contains(t, res.State.Messages, "[System] Continuing normal monitoring")
	assert.Equal(t, workflow.NextActionContinueMonitoring, res.State.NextAction)
}

func TestSwarm_RoutingByLikelihood(t *testing.T) {
	tests := []struct {
		likelihood string
		escalates  bool
	}{
		{"critical", true},
		{"high", true},
		{"HIGH", true},
		{"medium", false},
		{"low", false},
		{"severe", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("likelihood "+tt.likelihood, func(t *testing.T) {
			g := newGraph(t, newReasoner(tt.likelihood))
			res, err := g.Run(context.Background(), state.New(models.ExternalSignals{AQI: 200}))
			require.NoError(t, err)

			if tt.escalates {
				assert.Equal(t, []string{StageSentinel, StageOrchestrator, StageActionAgents, workflow.End}, res.Path)
			} else {
				assert.Equal(t, []string{StageSentinel, StageMonitor, workflow.End}, res.Path)
			}
		})
	}
}

func TestSwarm_UnparseableAssessmentMonitors(t *testing.T) {
	r := new(MockReasoner)
	r.On("Invoke", mock.Anything, prompted("Sentinel Agent")).Return("The air is bad today.", nil)
	g := newGraph(t, r)

	res, err := g.Run(context.Background(), state.New(models.ExternalSignals{AQI: 350}))
	require.NoError(t, err)

	assert.Equal(t, []string{StageSentinel, StageMonitor, workflow.End}, res.Path)
	require.NotNil(t, res.State.SurgePrediction)
	assert.Equal(t, models.LikelihoodMedium, res.State.SurgePrediction.Likelihood)
	assert.Equal(t, 60, res.State.SurgePrediction.ConfidenceScore)
	assert.Contains(t, res.State.Messages, "[Sentinel] Assessment unparseable, using default prediction")
}

func TestSwarm_RateLimitedSentinelDegrades(t *testing.T) {
	r := new(MockReasoner)
	r.On("Invoke", mock.Anything, prompted("Sentinel Agent")).Return("", retry.RateLimited(errors.New("429 quota")))
	g := newGraph(t, r)

	res, err := g.Run(context.Background(), state.New(models.ExternalSignals{AQI: 350}))
	require.NoError(t, err)

	assert.Equal(t, []string{StageSentinel, StageMonitor, workflow.End}, res.Path)
	assert.Equal(t, []string{StageSentinel}, res.Degraded)
	assert.Nil(t, res.State.SurgePrediction)
	require.NotEmpty(t, res.State.Messages)
	assert.True(t, strings.HasPrefix(res.State.Messages[0], "sentinel failed:"))
	r.AssertNumberOfCalls(t, "Invoke", 3)
}

func TestSwarm_HandlerFailureIsIsolated(t *testing.T) {
	r := new(MockReasoner)
	r.On("Invoke", mock.Anything, prompted("Sentinel Agent")).Return(assessmentJSON("critical"), nil)
	r.On("Invoke", mock.Anything, prompted("Orchestrator Agent")).Return(planJSON, nil)
	r.On("Invoke", mock.Anything, prompted("Staff Reallocation Agent")).Return("", errors.New("connection reset"))
	r.On("Invoke", mock.Anything, prompted("Supply Chain Agent")).Return(`{"order_items":[{"item":"O2 Cylinders","quantity":20}]}`, nil)
	r.On("Invoke", mock.Anything, prompted("Patient Advisory Agent")).Return(`{"messages":{"en":"Expect long waits"}}`, nil)
	g := newGraph(t, r)

	res, err := g.Run(context.Background(), state.New(models.ExternalSignals{AQI: 350}))
	require.NoError(t, err)

	results := res.State.ActionResults
	require.Len(t, results, 3)
	assert.True(t, results[0].Failed())
	assert.NotNil(t, results[1].ProducedArtifact)
	assert.NotNil(t, results[2].ProducedArtifact)
	assert.Contains(t, res.State.Messages, "[ActionAgents] 1 of 3 actions failed")
}

func TestSwarm_ConcurrentRunsAreIndependent(t *testing.T) {
	g := newGraph(t, newReasoner("critical"))

	const runs = 8
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		go func() {
			res, err := g.Run(context.Background(), state.New(models.ExternalSignals{AQI: 300 + i}))
			if err == nil && len(res.State.ActionResults) != 3 {
				err = fmt.Errorf("run %d produced %d action results", i, len(res.State.ActionResults))
			}
			errs <- err
		}()
	}
	for i := 0; i < runs; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestNewSwarm_RequiresDeps(t *testing.T) {
	_, err := NewSwarm(Deps{}, DefaultSettings())
	assert.Error(t, err)

	bad := DefaultSettings()
	bad.Blend.ConfidenceCap = 120
	_, err = NewSwarm(Deps{Reasoner: new(MockReasoner), Forecaster: new(MockForecaster), Resources: new(MockResources)}, bad)
	assert.Error(t, err)
}

func TestSeverityRoute(t *testing.T) {
	st := state.New(models.ExternalSignals{})
	assert.Equal(t, RouteMonitor, SeverityRoute(*st))

	st.SurgePrediction = &models.SurgePrediction{Likelihood: models.LikelihoodCritical}
	assert.Equal(t, RouteEscalate, SeverityRoute(*st))

	st.SurgePrediction = &models.SurgePrediction{Likelihood: "unknown"}
	assert.Equal(t, RouteMonitor, SeverityRoute(*st))
}
