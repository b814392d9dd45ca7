// Package agents implements the surge workflow stages and assembles them
// into the swarm graph:
//
//	sentinel -> (escalate) orchestrator -> action_agents -> done
//	sentinel -> (monitor)  monitor -> done
package agents

import (
	"errors"
	"fmt"

	"arogya-swarm/backend/internal/dispatch"
	"arogya-swarm/backend/internal/forecast"
	"arogya-swarm/backend/internal/repository"
	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/internal/services"
	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
)

// Stage names.
const (
	StageSentinel     = "sentinel"
	StageOrchestrator = "orchestrator"
	StageActionAgents = "action_agents"
	StageMonitor      = "monitor"
)

// Router outcomes.
const (
	RouteEscalate = "escalate"
	RouteMonitor  = "monitor"
)

// SeverityRoute escalates high and critical predictions. Every other value,
// including a missing prediction or an unrecognised likelihood, monitors.
func SeverityRoute(view state.State) string {
	if view.SurgePrediction.Escalates() {
		return RouteEscalate
	}
	return RouteMonitor
}

// Deps are the collaborators shared by all stages. Their lifecycle belongs
// to the caller.
type Deps struct {
	Reasoner   services.Reasoner
	Forecaster services.Forecaster
	Resources  repository.ResourceProvider
	// History is optional.
	History repository.ArrivalHistory
	Logger  workflow.Logger
}

// Settings tune the stages.
type Settings struct {
	Policy              retry.Policy
	Blend               forecast.Config
	Staff               dispatch.StaffRules
	HistoryDays         int
	DispatchConcurrency int
	HospitalName        string
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		Policy:              retry.DefaultPolicy(),
		Blend:               forecast.DefaultConfig(),
		Staff:               dispatch.DefaultStaffRules(),
		HistoryDays:         30,
		DispatchConcurrency: 3,
	}
}

// NewSwarm builds the surge workflow graph.
func NewSwarm(deps Deps, settings Settings) (*workflow.Graph, error) {
	if deps.Reasoner == nil || deps.Forecaster == nil || deps.Resources == nil {
		return nil, errors.New("reasoner, forecaster and resource provider are required")
	}
	logger := orNop(deps.Logger)

	blender, err := forecast.NewBlender(settings.Blend, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid blend settings: %w", err)
	}

	handlerDeps := dispatch.Deps{Resources: deps.Resources, Reasoner: deps.Reasoner, Policy: settings.Policy, Logger: logger}
	staff, err := dispatch.NewStaffHandler(handlerDeps, settings.Staff)
	if err != nil {
		return nil, fmt.Errorf("invalid staff rules: %w", err)
	}
	supply, err := dispatch.NewSupplyHandler(handlerDeps)
	if err != nil {
		return nil, err
	}
	advisory, err := dispatch.NewAdvisoryHandler(handlerDeps, settings.HospitalName)
	if err != nil {
		return nil, err
	}
	dispatcher, err := dispatch.New([]dispatch.Handler{staff, supply, advisory},
		dispatch.WithConcurrency(settings.DispatchConcurrency), dispatch.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return workflow.NewBuilder(workflow.WithLogger(logger)).
		AddStage(NewSentinel(deps.Reasoner, deps.Forecaster, deps.History, blender, settings.Policy, settings.HistoryDays, logger)).
		AddStage(NewOrchestrator(deps.Reasoner, deps.Resources, settings.Policy, logger)).
		AddStage(NewActionAgents(dispatcher)).
		AddStage(Monitor{}).
		SetEntry(StageSentinel).
		AddEdge(StageSentinel, workflow.Conditional{Router: workflow.Router{
			Name:      "severity",
			Predicate: SeverityRoute,
			Outcomes: map[string]string{
				RouteEscalate: StageOrchestrator,
				RouteMonitor:  StageMonitor,
			},
		}}).
		AddEdge(StageOrchestrator, workflow.Unconditional{Target: StageActionAgents}).
		AddEdge(StageActionAgents, workflow.Unconditional{Target: workflow.End}).
		AddEdge(StageMonitor, workflow.Unconditional{Target: workflow.End}).
		Build()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func orNop(l workflow.Logger) workflow.Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
