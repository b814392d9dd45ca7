package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"arogya-swarm/backend/internal/repository"
	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/internal/services"
	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"
)

// CostTable maps cost actions to their estimated impact in rupees. Negative
// values are costs, positive values are savings.
var CostTable = map[string]float64{
	"overtime_staff":        -15000,
	"emergency_procurement": -25000,
	"prevent_diversion":     50000,
	"avoid_overtime":        15000,
}

// CostImpact looks up action in CostTable. Unknown actions cost nothing.
func CostImpact(action string) float64 {
	return CostTable[strings.ToLower(strings.TrimSpace(action))]
}

// Orchestrator turns an escalated prediction into recommendations.
type Orchestrator struct {
	reasoner  services.Reasoner
	resources repository.ResourceProvider
	policy    retry.Policy
	now       func() time.Time
	logger    workflow.Logger
	err       error
}

// NewOrchestrator creates the orchestrator stage. resources may be nil.
func NewOrchestrator(reasoner services.Reasoner, resources repository.ResourceProvider, policy retry.Policy, logger workflow.Logger) *Orchestrator {
	o := &Orchestrator{
		reasoner:  reasoner,
		resources: resources,
		policy:    policy,
		now:       time.Now,
		logger:    orNop(logger),
	}
	if reasoner == nil {
		o.err = errors.New("orchestrator has no reasoner")
	}
	return o
}

// Name implements workflow.Stage.
func (o *Orchestrator) Name() string { return StageOrchestrator }

// Execute implements workflow.Stage.
func (o *Orchestrator) Execute(ctx context.Context, view state.State) (state.Update, error) {
	if o.err != nil {
		return state.Update{}, workflow.Fatal(o.err)
	}
	p := view.SurgePrediction
	if p == nil {
		return state.Update{}, workflow.Fatal(errors.New("orchestrator reached without a surge prediction"))
	}
	if p.Likelihood == models.LikelihoodLow {
		return state.Update{
			Messages:     []string{"[Orchestrator] Situation normal, no action required"},
			CurrentAgent: state.Str(StageOrchestrator),
			NextAction:   state.Str(workflow.NextActionContinueMonitoring),
		}, nil
	}

	prompt := orchestratorPrompt(*p, o.snapshot(ctx))
	raw, err := retry.Do(ctx, o.policy, func(ctx context.Context) (string, error) {
		return o.reasoner.Invoke(ctx, prompt)
	})
	if err != nil {
		return state.Update{}, fmt.Errorf("failed to draft action plan: %w", err)
	}

	recs, err := parseRecommendations(raw)
	reasoning := raw
	if err != nil || len(recs) == 0 {
		o.logger.Warn("action plan unusable, applying standard playbook", "error", err, "drafted", len(recs))
		recs = Playbook(*p)
		reasoning = "Standard surge playbook applied: drafted plan was unusable"
	}

	created := o.now().UTC()
	for i := range recs {
		recs[i].Status = models.StatusPending
		recs[i].CreatedByAgent = StageOrchestrator
		recs[i].CreatedAt = created
	}

	return state.Update{
		Recommendations: recs,
		Messages:        []string{fmt.Sprintf("[Orchestrator] Generated %d recommendations", len(recs))},
		ReasoningChain:  []string{reasoning},
		CurrentAgent:    state.Str(StageOrchestrator),
		NextAction:      state.Str(NextDispatch),
	}, nil
}

// snapshot describes current resources for the prompt. Provider failures
// are logged and the plan is drafted without them.
func (o *Orchestrator) snapshot(ctx context.Context) string {
	if o.resources == nil {
		return "unavailable"
	}
	var b strings.Builder
	if staff, err := o.resources.GetStaffAvailability(ctx); err == nil {
		for key, g := range staff {
			fmt.Fprintf(&b, "- Staff %s: %d/%d available, avg fatigue %.1f\n", key, g.Available, g.Total, g.AvgFatigue)
		}
	} else {
		o.logger.Warn("staff snapshot failed", "error", err)
	}
	if items, err := o.resources.GetInventoryStatus(ctx, true); err == nil {
		for _, it := range items {
			fmt.Fprintf(&b, "- Critical inventory %s: %d/%d %s\n", it.Item, it.Current, it.Threshold, it.Unit)
		}
	} else {
		o.logger.Warn("inventory snapshot failed", "error", err)
	}
	if b.Len() == 0 {
		return "unavailable"
	}
	return b.String()
}

func orchestratorPrompt(p models.SurgePrediction, resources string) string {
	return fmt.Sprintf(`You are an Orchestrator Agent coordinating hospital surge response.

Current Situation:
Surge Prediction: %s
Confidence: %d%%
Predicted Increase: %.1f%%
Affected Departments: %s
Time Horizon: %s
Reasoning: %s

Current Resources:
%s
Cost actions available for estimates: overtime_staff, emergency_procurement, prevent_diversion, avoid_overtime.

Create a comprehensive action plan with:
1. Staff reallocation recommendations
2. Supply chain alerts
3. Patient advisory messages

Be specific with numbers and priorities. Output JSON:
{
  "recommendations": [
    {"type": "staff_reallocation|supply_order|patient_advisory", "title": "...", "priority": "low|medium|high|critical",
     "estimated_cost_impact": -5000, "cost_action": "overtime_staff", "reasoning": "..."}
  ]
}`, p.Likelihood, p.ConfidenceScore, p.PredictedIncreasePct, strings.Join(p.AffectedDepartments, ", "),
		p.TimeHorizon, p.Reasoning, resources)
}

type draftedRecommendation struct {
	Type                models.RecommendationType `json:"type"`
	Title               string                    `json:"title"`
	Priority            models.Priority           `json:"priority"`
	EstimatedCostImpact *float64                  `json:"estimated_cost_impact"`
	CostAction          string                    `json:"cost_action"`
	Reasoning           string                    `json:"reasoning"`
}

// parseRecommendations accepts either {"recommendations": [...]} or a bare
// array. Items with an unknown type or no title are dropped.
func parseRecommendations(raw string) ([]models.Recommendation, error) {
	body, err := services.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var drafted []draftedRecommendation
	if strings.HasPrefix(body, "[") {
		err = json.Unmarshal([]byte(body), &drafted)
	} else {
		var wrapper struct {
			Recommendations []draftedRecommendation `json:"recommendations"`
		}
		err = json.Unmarshal([]byte(body), &wrapper)
		drafted = wrapper.Recommendations
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}

	recs := make([]models.Recommendation, 0, len(drafted))
	for _, d := range drafted {
		switch d.Type {
		case models.RecommendationStaffReallocation, models.RecommendationSupplyOrder, models.RecommendationPatientAdvisory:
		default:
			continue
		}
		if strings.TrimSpace(d.Title) == "" {
			continue
		}
		rec := models.Recommendation{
			Type:      d.Type,
			Title:     d.Title,
			Priority:  normalizePriority(d.Priority),
			Reasoning: d.Reasoning,
		}
		if d.EstimatedCostImpact != nil {
			rec.EstimatedCostImpact = *d.EstimatedCostImpact
		} else {
			rec.EstimatedCostImpact = CostImpact(d.CostAction)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func normalizePriority(p models.Priority) models.Priority {
	switch q := models.Priority(strings.ToLower(string(p))); q {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
		return q
	default:
		return models.PriorityMedium
	}
}

// Playbook is the standard three-step response used when no usable plan
// was drafted.
func Playbook(p models.SurgePrediction) []models.Recommendation {
	dept := "ER"
	if len(p.AffectedDepartments) > 0 {
		dept = p.AffectedDepartments[0]
	}
	return []models.Recommendation{
		{
			Type:                models.RecommendationStaffReallocation,
			Title:               "Move 5 nurses from OPD to " + dept,
			Priority:            models.PriorityHigh,
			EstimatedCostImpact: -5000,
			Reasoning:           fmt.Sprintf("%s surge predicted within %s", dept, p.TimeHorizon),
		},
		{
			Type:                models.RecommendationSupplyOrder,
			Title:               "Order 20 O2 cylinders (emergency)",
			Priority:            models.PriorityCritical,
			EstimatedCostImpact: -16000,
			Reasoning:           "Surge will deplete current stock quickly",
		},
		{
			Type:                models.RecommendationPatientAdvisory,
			Title:               "SMS Alert: High wait times expected",
			Priority:            models.PriorityMedium,
			EstimatedCostImpact: 0,
			Reasoning:           "Inform patients to consider teleconsult alternatives",
		},
	}
}
