package agents

import (
	"context"
	"errors"
	"fmt"

	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"
)

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, recs []models.Recommendation) []models.ActionResult
}

// ActionAgents hands every accumulated recommendation to its sub-agent.
type ActionAgents struct {
	dispatcher Dispatcher
}

// NewActionAgents creates the terminal action stage.
func NewActionAgents(d Dispatcher) *ActionAgents {
	return &ActionAgents{dispatcher: d}
}

// Name implements workflow.Stage.
func (a *ActionAgents) Name() string { return StageActionAgents }

// Execute implements workflow.Stage.
func (a *ActionAgents) Execute(ctx context.Context, view state.State) (state.Update, error) {
	if a.dispatcher == nil {
		return state.Update{}, workflow.Fatal(errors.New("action agents have no dispatcher"))
	}

	results := a.dispatcher.Dispatch(ctx, view.Recommendations)
	if results == nil {
		results = []models.ActionResult{}
	}

	messages := []string{fmt.Sprintf("[ActionAgents] Executed %d actions", len(results))}
	var failed int
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		messages = append(messages, fmt.Sprintf("[ActionAgents] %d of %d actions failed", failed, len(results)))
	}

	return state.Update{
		ActionResults: results,
		Messages:      messages,
		CurrentAgent:  state.Str(StageActionAgents),
		NextAction:    state.Str(NextComplete),
	}, nil
}

// Monitor records that no escalation is needed.
type Monitor struct{}

// Name implements workflow.Stage.
func (Monitor) Name() string { return StageMonitor }

// Execute implements workflow.Stage.
func (Monitor) Execute(context.Context, state.State) (state.Update, error) {
	return state.Update{
		Messages:     []string{"[System] Continuing normal monitoring"},
		CurrentAgent: state.Str(StageMonitor),
		NextAction:   state.Str(workflow.NextActionContinueMonitoring),
	}, nil
}
