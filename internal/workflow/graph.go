// Package workflow drives shared state through a graph of reasoning
// stages. Execution within one run is strictly sequential: a stage's update
// is merged before its outgoing edge is evaluated and before the next stage
// starts.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arogya-swarm/backend/internal/state"

	"github.com/google/uuid"
)

// End is the terminal state of every run.
const End = "done"

const defaultMaxSteps = 32

type node struct {
	exec *Executor
	edge Edge
}

// Graph is an immutable, validated workflow. A single Graph may serve any
// number of concurrent runs.
type Graph struct {
	entry    string
	nodes    map[string]node
	logger   Logger
	maxSteps int
}

// RunResult is the output of one run.
type RunResult struct {
	RunID      string       `json:"run_id"`
	State      *state.State `json:"final_state"`
	Path       []string     `json:"path"`
	Degraded   []string     `json:"degraded_stages,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Entry returns the name of the entry stage.
func (g *Graph) Entry() string { return g.entry }

// Run executes the workflow from the entry stage until End. The initial
// state is copied; the caller's value is never mutated. A fatal stage error
// halts the run and is returned as a *FatalStageError with no result.
func (g *Graph) Run(ctx context.Context, initial *state.State) (*RunResult, error) {
	if initial == nil {
		return nil, Fatal(errors.New("run requires an initial state"))
	}
	st := initial.Clone()
	res := &RunResult{
		RunID:     uuid.New().String(),
		State:     &st,
		StartedAt: time.Now().UTC(),
	}

	g.logger.Info("workflow run started", "run_id", res.RunID, "entry", g.entry)

	current := g.entry
	for steps := 0; current != End; steps++ {
		if steps >= g.maxSteps {
			snapshot := st.Clone()
			return nil, &FatalStageError{Stage: current, Snapshot: &snapshot, Err: fmt.Errorf("run exceeded %d steps", g.maxSteps)}
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s canceled before stage %s: %w", res.RunID, current, err)
		}

		n := g.nodes[current]
		res.Path = append(res.Path, current)
		outcome, err := n.exec.Invoke(ctx, res.RunID, &st)
		if err != nil {
			return nil, err
		}
		if outcome == OutcomeDegraded {
			res.Degraded = append(res.Degraded, current)
		}

		label, target, err := n.edge.next(st.Clone())
		if err != nil {
			snapshot := st.Clone()
			g.logger.Error("routing failed", "run_id", res.RunID, "stage", current, "error", err)
			return nil, &FatalStageError{Stage: current, Snapshot: &snapshot, Err: err}
		}
		if label != "" {
			g.logger.Debug("routed", "run_id", res.RunID, "stage", current, "outcome", label, "next", target)
		}
		current = target
	}
	res.Path = append(res.Path, End)
	res.FinishedAt = time.Now().UTC()

	g.logger.Info("workflow run finished",
		"run_id", res.RunID,
		"path", res.Path,
		"messages", len(st.Messages),
		"recommendations", len(st.Recommendations),
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, nil
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used by the graph and its executors.
func WithLogger(l Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMaxSteps bounds the number of stages a single run may execute.
func WithMaxSteps(n int) Option {
	return func(b *Builder) { b.maxSteps = n }
}

// Builder declares stages and edges and validates them into a Graph.
type Builder struct {
	stages   map[string]Stage
	order    []string
	edges    map[string]Edge
	entries  []string
	logger   Logger
	maxSteps int
	errs     []error
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		stages:   make(map[string]Stage),
		edges:    make(map[string]Edge),
		logger:   nopLogger{},
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddStage registers a stage under its name.
func (b *Builder) AddStage(s Stage) *Builder {
	if s == nil {
		b.errs = append(b.errs, errors.New("nil stage"))
		return b
	}
	name := s.Name()
	switch {
	case name == "":
		b.errs = append(b.errs, errors.New("stage name cannot be empty"))
	case name == End:
		b.errs = append(b.errs, fmt.Errorf("stage name %q is reserved", End))
	default:
		if _, exists := b.stages[name]; exists {
			b.errs = append(b.errs, fmt.Errorf("duplicate stage name: %s", name))
			return b
		}
		b.stages[name] = s
		b.order = append(b.order, name)
	}
	return b
}

// AddEdge sets the single outgoing edge of from.
func (b *Builder) AddEdge(from string, e Edge) *Builder {
	if e == nil {
		b.errs = append(b.errs, fmt.Errorf("stage %s: nil edge", from))
		return b
	}
	if _, exists := b.edges[from]; exists {
		b.errs = append(b.errs, fmt.Errorf("stage %s already has an outgoing edge", from))
		return b
	}
	b.edges[from] = e
	return b
}

// SetEntry marks the stage every run starts from.
func (b *Builder) SetEntry(name string) *Builder {
	b.entries = append(b.entries, name)
	return b
}

// Build validates the declaration and returns an executable graph.
func (b *Builder) Build() (*Graph, error) {
	errs := append([]error(nil), b.errs...)

	switch len(b.entries) {
	case 0:
		errs = append(errs, errors.New("no entry stage"))
	case 1:
		if _, ok := b.stages[b.entries[0]]; !ok {
			errs = append(errs, fmt.Errorf("entry stage %s is not registered", b.entries[0]))
		}
	default:
		errs = append(errs, fmt.Errorf("exactly one entry stage allowed, got %v", b.entries))
	}

	for from, e := range b.edges {
		if _, ok := b.stages[from]; !ok {
			errs = append(errs, fmt.Errorf("edge from unknown stage %s", from))
			continue
		}
		if c, ok := e.(Conditional); ok {
			if c.Router.Predicate == nil {
				errs = append(errs, fmt.Errorf("stage %s: conditional edge has no predicate", from))
			}
			if len(c.Router.Outcomes) == 0 {
				errs = append(errs, fmt.Errorf("stage %s: conditional edge has no outcomes", from))
			}
		}
		for _, target := range e.targets() {
			if target == End {
				continue
			}
			if _, ok := b.stages[target]; !ok {
				errs = append(errs, fmt.Errorf("stage %s routes to unknown stage %s", from, target))
			}
		}
	}

	for _, name := range b.order {
		if _, ok := b.edges[name]; !ok {
			errs = append(errs, fmt.Errorf("stage %s has no outgoing edge", name))
		}
	}

	if len(errs) == 0 {
		for _, name := range b.unreachable() {
			errs = append(errs, fmt.Errorf("stage %s is unreachable from entry", name))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(errs...))
	}

	g := &Graph{
		entry:    b.entries[0],
		nodes:    make(map[string]node, len(b.stages)),
		logger:   b.logger,
		maxSteps: b.maxSteps,
	}
	for name, s := range b.stages {
		g.nodes[name] = node{exec: NewExecutor(s, b.logger), edge: b.edges[name]}
	}
	return g, nil
}

func (b *Builder) unreachable() []string {
	seen := map[string]bool{b.entries[0]: true}
	queue := []string{b.entries[0]}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, target := range b.edges[cur].targets() {
			if target == End || seen[target] {
				continue
			}
			seen[target] = true
			queue = append(queue, target)
		}
	}
	var out []string
	for _, name := range b.order {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}
