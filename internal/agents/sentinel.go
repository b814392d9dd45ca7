package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arogya-swarm/backend/internal/forecast"
	"arogya-swarm/backend/internal/repository"
	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/internal/services"
	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"
)

// Routing decisions recorded in next_action.
const (
	NextEscalate = "escalate_to_orchestrator"
	NextMonitor  = "monitor"
	NextDispatch = "dispatch_action_agents"
	NextComplete = "complete"
)

// defaultPattern is quoted when no arrival history is available.
const defaultPattern = "35% increase in ER visits within 24 hours"

// Sentinel reads external signals and predicts the surge.
type Sentinel struct {
	reasoner    services.Reasoner
	forecaster  services.Forecaster
	history     repository.ArrivalHistory
	blender     *forecast.Blender
	policy      retry.Policy
	historyDays int
	now         func() time.Time
	logger      workflow.Logger
	err         error
}

// NewSentinel creates the sentinel stage. history may be nil, in which case
// a synthetic weekly series is forecast. Missing collaborators make every
// execution fail fatally.
func NewSentinel(reasoner services.Reasoner, forecaster services.Forecaster, history repository.ArrivalHistory,
	blender *forecast.Blender, policy retry.Policy, historyDays int, logger workflow.Logger) *Sentinel {
	s := &Sentinel{
		reasoner:    reasoner,
		forecaster:  forecaster,
		history:     history,
		blender:     blender,
		policy:      policy,
		historyDays: historyDays,
		now:         time.Now,
		logger:      orNop(logger),
	}
	switch {
	case reasoner == nil:
		s.err = errors.New("sentinel has no reasoner")
	case forecaster == nil:
		s.err = errors.New("sentinel has no forecaster")
	case blender == nil:
		s.err = errors.New("sentinel has no blender")
	case historyDays < 7:
		s.err = fmt.Errorf("history window of %d days is shorter than a week", historyDays)
	}
	return s
}

// Name implements workflow.Stage.
func (s *Sentinel) Name() string { return StageSentinel }

// Execute implements workflow.Stage.
func (s *Sentinel) Execute(ctx context.Context, view state.State) (state.Update, error) {
	if s.err != nil {
		return state.Update{}, workflow.Fatal(s.err)
	}

	series := s.arrivals(ctx)
	prompt := sentinelPrompt(view.Signals, historicalPattern(series))
	raw, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.reasoner.Invoke(ctx, prompt)
	})
	if err != nil {
		return state.Update{}, fmt.Errorf("failed to assess external signals: %w", err)
	}

	res := s.blender.Blend(raw, s.forecast(ctx, series))
	p := res.Prediction

	messages := []string{fmt.Sprintf("[Sentinel] Surge prediction: %s", p.Likelihood)}
	if res.Degraded() {
		messages = append(messages, "[Sentinel] Assessment unparseable, using default prediction")
	}
	next := NextMonitor
	if p.Escalates() {
		next = NextEscalate
	}

	return state.Update{
		SurgePrediction: &p,
		Messages:        messages,
		ReasoningChain:  []string{p.Reasoning},
		CurrentAgent:    state.Str(StageSentinel),
		NextAction:      state.Str(next),
	}, nil
}

func (s *Sentinel) arrivals(ctx context.Context) []models.CountPoint {
	if s.history != nil {
		series, err := s.history.DailyArrivals(ctx, s.historyDays)
		if err == nil && len(series) >= 7 {
			return series
		}
		s.logger.Warn("arrival history unavailable, using synthetic series", "error", err, "points", len(series))
	}
	return services.SyntheticArrivals(s.now(), s.historyDays)
}

// forecast returns nil when the forecaster fails so the blend proceeds
// without an agreement check.
func (s *Sentinel) forecast(ctx context.Context, series []models.CountPoint) *models.Forecast {
	fc, err := retry.Do(ctx, s.policy, func(ctx context.Context) (models.Forecast, error) {
		return s.forecaster.Forecast(ctx, series)
	})
	if err != nil {
		s.logger.Warn("statistical forecast failed", "error", err)
		return nil
	}
	return &fc
}

func sentinelPrompt(sig models.ExternalSignals, pattern string) string {
	events := "none"
	if len(sig.Events) > 0 {
		events = strings.Join(sig.Events, "; ")
	}
	return fmt.Sprintf(`You are a Sentinel Agent monitoring external threats to hospital operations.

Your task: Analyze external data and predict patient surge likelihood in the next 24-48 hours.

Consider these factors:
1. Air Quality Index (AQI): High AQI (>200) typically increases respiratory cases by 30-50%%
2. Weather: Extreme heat/cold correlates with 20-40%% ER increase
3. Local Events: Festivals, large gatherings increase accident/injury cases
4. Social Media: Trending health complaints indicate outbreak potential

Output Format (JSON):
{
  "surge_likelihood": "low|medium|high|critical",
  "confidence_score": 0-100,
  "predicted_patient_increase": "percentage",
  "departments_affected": ["ER", "ICU"],
  "time_horizon": "24h|48h",
  "reasoning": "step-by-step explanation",
  "recommended_actions": ["action1", "action2"]
}

Current Data:
- AQI: %d
- Weather: %.1f°C, %.0f%% humidity, %s
- Upcoming Events: %s
- Social Media Sentiment: %v

Historical Pattern: During similar conditions, we saw %s

Analyze and predict:`, sig.AQI, sig.Weather.TemperatureC, sig.Weather.HumidityPct, orDash(sig.Weather.Condition),
		events, sig.Sentiment, pattern)
}

// historicalPattern summarises the busiest day against the window mean.
func historicalPattern(series []models.CountPoint) string {
	if len(series) < 7 {
		return defaultPattern
	}
	var sum, peak float64
	for _, p := range series {
		sum += p.Count
		peak = max(peak, p.Count)
	}
	avg := sum / float64(len(series))
	if avg <= 0 {
		return defaultPattern
	}
	return fmt.Sprintf("peak daily arrivals %.0f against a %d-day mean of %.0f (+%.0f%%)",
		peak, len(series), avg, (peak-avg)/avg*100)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
