// Package dispatch fans recommendations out to the sub-agent handler for
// their type and collects one result per recommendation.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"arogya-swarm/backend/pkg/models"

	"golang.org/x/sync/errgroup"
)

// ErrNoHandler is returned for a recommendation type with no registered handler.
var ErrNoHandler = errors.New("no handler registered")

// ItemHandlerError records the failure of a single recommendation. It never
// aborts the remaining items.
type ItemHandlerError struct {
	Index int
	Type  models.RecommendationType
	Err   error
}

func (e *ItemHandlerError) Error() string {
	return fmt.Sprintf("%s handler failed: %v", e.Type, e.Err)
}

func (e *ItemHandlerError) Unwrap() error { return e.Err }

// Handler drafts the artifact for one recommendation type.
type Handler interface {
	Type() models.RecommendationType
	Handle(ctx context.Context, rec models.Recommendation) (*models.Artifact, error)
}

// Logger is the logging interface used by the dispatcher and its handlers.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency bounds how many items are handled at once.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher routes recommendations to handlers.
type Dispatcher struct {
	handlers    map[models.RecommendationType]Handler
	concurrency int
	logger      Logger
}

// New registers one handler per recommendation type.
func New(handlers []Handler, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers:    make(map[models.RecommendationType]Handler, len(handlers)),
		concurrency: 1,
		logger:      nopLogger{},
	}
	for _, h := range handlers {
		if h == nil {
			return nil, errors.New("nil handler")
		}
		if _, dup := d.handlers[h.Type()]; dup {
			return nil, fmt.Errorf("duplicate handler for %s", h.Type())
		}
		d.handlers[h.Type()] = h
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch handles every recommendation and returns results in input order.
// Failed items carry an error string instead of an artifact.
func (d *Dispatcher) Dispatch(ctx context.Context, recs []models.Recommendation) []models.ActionResult {
	results := make([]models.ActionResult, len(recs))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, rec := range recs {
		g.Go(func() error {
			results[i] = d.dispatchOne(ctx, i, rec)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, i int, rec models.Recommendation) models.ActionResult {
	result := models.ActionResult{Recommendation: rec}

	artifact, err := d.handle(ctx, rec)
	if err == nil && artifact == nil {
		err = errors.New("handler produced no artifact")
	}
	if err != nil {
		itemErr := &ItemHandlerError{Index: i, Type: rec.Type, Err: err}
		d.logger.Warn("recommendation handler failed", "index", i, "type", rec.Type, "title", rec.Title, "error", err)
		result.Error = itemErr.Error()
		return result
	}

	artifact.Kind = rec.Type
	result.ProducedArtifact = artifact
	d.logger.Debug("recommendation handled", "index", i, "type", rec.Type)
	return result
}

func (d *Dispatcher) handle(ctx context.Context, rec models.Recommendation) (artifact *models.Artifact, err error) {
	h, ok := d.handlers[rec.Type]
	if !ok {
		return nil, fmt.Errorf("%w for type %q", ErrNoHandler, rec.Type)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			artifact, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, rec)
}
