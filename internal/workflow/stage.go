package workflow

import (
	"context"

	"arogya-swarm/backend/internal/state"
)

// Stage is one unit of reasoning in the workflow. Execute receives a copy
// of the current state and returns the fields it computed.
type Stage interface {
	Name() string
	Execute(ctx context.Context, view state.State) (state.Update, error)
}

type stageFunc struct {
	name string
	fn   func(ctx context.Context, view state.State) (state.Update, error)
}

// StageFunc adapts a plain function to the Stage interface.
func StageFunc(name string, fn func(ctx context.Context, view state.State) (state.Update, error)) Stage {
	return &stageFunc{name: name, fn: fn}
}

func (s *stageFunc) Name() string { return s.name }

func (s *stageFunc) Execute(ctx context.Context, view state.State) (state.Update, error) {
	return s.fn(ctx, view)
}

// Logger is the logging interface used by the workflow package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
