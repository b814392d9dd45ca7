package workflow

import (
	"context"
	"errors"
	"fmt"

	"arogya-swarm/backend/internal/state"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "arogya-swarm/workflow"

// NextActionContinueMonitoring is recorded when a stage degrades.
const NextActionContinueMonitoring = "continue_monitoring"

// Outcome describes how a single stage invocation ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFatal    Outcome = "fatal"
)

// Executor runs one stage against a state and merges its result.
type Executor struct {
	stage      Stage
	logger     Logger
	tracer     trace.Tracer
	executions metric.Int64Counter
}

// NewExecutor wraps stage. A nil logger discards output.
func NewExecutor(stage Stage, logger Logger) *Executor {
	if logger == nil {
		logger = nopLogger{}
	}
	executions, err := otel.Meter(instrumentationName).Int64Counter(
		"workflow.stage.executions",
		metric.WithDescription("Stage invocations by outcome"),
	)
	if err != nil {
		logger.Warn("stage counter unavailable", "error", err)
	}
	return &Executor{
		stage:      stage,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		executions: executions,
	}
}

// Name returns the wrapped stage's name.
func (e *Executor) Name() string { return e.stage.Name() }

// Invoke runs the stage against a copy of st and merges the result into st.
// Transient failures are replaced by a degraded update; the returned error
// is always a *FatalStageError.
func (e *Executor) Invoke(ctx context.Context, runID string, st *state.State) (Outcome, error) {
	name := e.stage.Name()
	ctx, span := e.tracer.Start(ctx, "stage "+name, trace.WithAttributes(
		attribute.String("stage", name),
		attribute.String("run_id", runID),
	))
	defer span.End()

	e.logger.Debug("stage started", "run_id", runID, "stage", name)

	outcome := OutcomeOK
	update, err := e.call(ctx, st.Clone())
	if err != nil {
		if IsFatal(err) {
			return e.fail(ctx, span, runID, st, err)
		}
		outcome = OutcomeDegraded
		var transient *TransientStageError
		if errors.As(err, &transient) && transient.Err != nil {
			err = transient.Err
		}
		e.logger.Warn("stage degraded", "run_id", runID, "stage", name, "error", err)
		span.RecordError(err)
		update = state.Update{
			Messages:   []string{fmt.Sprintf("%s failed: %v", name, err)},
			NextAction: state.Str(NextActionContinueMonitoring),
		}
	}

	if len(update.Messages) == 0 {
		update.Messages = []string{fmt.Sprintf("[%s] completed", name)}
	}
	if update.CurrentAgent == nil {
		update.CurrentAgent = state.Str(name)
	}

	if err := st.Merge(update); err != nil {
		return e.fail(ctx, span, runID, st, err)
	}

	span.SetAttributes(attribute.String("outcome", string(outcome)))
	e.record(ctx, outcome)
	e.logger.Debug("stage finished", "run_id", runID, "stage", name, "outcome", outcome)
	return outcome, nil
}

func (e *Executor) call(ctx context.Context, view state.State) (update state.Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Fatal(fmt.Errorf("panic: %v", r))
		}
	}()
	return e.stage.Execute(ctx, view)
}

func (e *Executor) fail(ctx context.Context, span trace.Span, runID string, st *state.State, err error) (Outcome, error) {
	name := e.stage.Name()
	snapshot := st.Clone()

	var fatal *FatalStageError
	if !errors.As(err, &fatal) {
		fatal = &FatalStageError{Err: err}
	}
	if fatal.Stage == "" {
		fatal.Stage = name
	}
	if fatal.Snapshot == nil {
		fatal.Snapshot = &snapshot
	}

	e.logger.Error("stage failed", "run_id", runID, "stage", name, "error", fatal.Err)
	span.RecordError(fatal)
	span.SetStatus(codes.Error, fatal.Error())
	span.SetAttributes(attribute.String("outcome", string(OutcomeFatal)))
	e.record(ctx, OutcomeFatal)
	return OutcomeFatal, fatal
}

func (e *Executor) record(ctx context.Context, outcome Outcome) {
	if e.executions == nil {
		return
	}
	e.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", e.stage.Name()),
		attribute.String("outcome", string(outcome)),
	))
}
