package workflow

import (
	"fmt"
	"sort"

	"arogya-swarm/backend/internal/state"
)

// Router chooses the next stage from a finite set of labelled outcomes.
// Predicate must be pure; it only sees a copy of the state.
type Router struct {
	Name      string
	Predicate func(view state.State) string
	Outcomes  map[string]string
}

// Route evaluates the predicate and resolves its label to a stage name.
func (r Router) Route(view state.State) (label, target string, err error) {
	label = r.Predicate(view)
	target, ok := r.Outcomes[label]
	if !ok {
		return label, "", fmt.Errorf("%w: router %q returned %q (known: %v)", ErrUndefinedRoute, r.Name, label, r.labels())
	}
	return label, target, nil
}

func (r Router) labels() []string {
	out := make([]string, 0, len(r.Outcomes))
	for label := range r.Outcomes {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Edge is an outgoing transition of a stage: either Unconditional or
// Conditional.
type Edge interface {
	targets() []string
	next(view state.State) (label, target string, err error)
}

// Unconditional always moves to Target.
type Unconditional struct {
	Target string
}

func (u Unconditional) targets() []string { return []string{u.Target} }

func (u Unconditional) next(state.State) (string, string, error) {
	return "", u.Target, nil
}

// Conditional moves to whatever stage its router selects.
type Conditional struct {
	Router Router
}

func (c Conditional) targets() []string {
	out := make([]string, 0, len(c.Router.Outcomes))
	for _, label := range c.Router.labels() {
		out = append(out, c.Router.Outcomes[label])
	}
	return out
}

func (c Conditional) next(view state.State) (string, string, error) {
	return c.Router.Route(view)
}
