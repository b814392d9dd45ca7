// Package api contains the HTTP trigger surface of the surge workflow
package api

import (
	"context"
	"net/http"

	"arogya-swarm/backend/internal/repository"
	"arogya-swarm/backend/internal/simulation"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"

	"github.com/labstack/echo/v4"
)

// Runs launches workflow runs and remembers recent results.
// *scheduler.Scheduler satisfies it.
type Runs interface {
	Trigger(ctx context.Context, signals models.ExternalSignals) (*workflow.RunResult, error)
	Latest() *workflow.RunResult
	Recent(n int) []*workflow.RunResult
}

// Streamer serves the live update websocket.
type Streamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Deps are the collaborators of the HTTP surface. Store, Resources, Stream
// and DB are optional; endpoints that need a missing one answer 503.
type Deps struct {
	Runs            Runs
	Scenarios       *simulation.Catalog
	DefaultScenario string
	Store           repository.RecommendationStore
	Resources       repository.ResourceProvider
	Stream          Streamer
	DB              Pinger
	Logger          Logger
}

// Server holds the dependencies for the API server.
type Server struct {
	runs            Runs
	scenarios       *simulation.Catalog
	defaultScenario string
	store           repository.RecommendationStore
	resources       repository.ResourceProvider
	stream          Streamer
	db              Pinger
	logger          Logger
}

// NewServer creates a new Server.
func NewServer(d Deps) *Server {
	s := &Server{
		runs:            d.Runs,
		scenarios:       d.Scenarios,
		defaultScenario: d.DefaultScenario,
		store:           d.Store,
		resources:       d.Resources,
		stream:          d.Stream,
		db:              d.DB,
		logger:          d.Logger,
	}
	if s.defaultScenario == "" {
		s.defaultScenario = simulation.DefaultScenario
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// Register mounts the health check on e and the REST API under /api/v1,
// guarded by mw.
func (s *Server) Register(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/health", s.HandleHealth)

	g := e.Group("/api/v1", mw...)
	g.POST("/runs", s.TriggerRun)
	g.GET("/runs", s.ListRuns)
	g.GET("/runs/latest", s.LatestRun)
	g.GET("/scenarios", s.ListScenarios)
	g.GET("/recommendations", s.ListRecommendations)
	g.GET("/analytics/cost-savings", s.CostSavings)
	g.GET("/resources/staff", s.StaffAvailability)
	g.GET("/resources/inventory", s.Inventory)
	g.GET("/resources/queue", s.PatientQueue)
	g.GET("/ws", s.Stream)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
