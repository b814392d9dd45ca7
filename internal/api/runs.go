package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// RunRequest selects the signals of an on-demand run. Signals take
// precedence over Scenario; an empty body runs the default scenario.
type RunRequest struct {
	Scenario string          `json:"scenario,omitempty"`
	Signals  json.RawMessage `json:"signals,omitempty"`
}

// TriggerRun executes one workflow run to completion
// (POST /api/v1/runs)
func (s *Server) TriggerRun(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}

	var req RunRequest
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return writeError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		}
	}

	signals, err := s.resolveSignals(req)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid run request", err.Error())
	}

	res, err := s.runs.Trigger(c.Request().Context(), signals)
	if err != nil {
		var fatal *workflow.FatalStageError
		if errors.As(err, &fatal) {
			s.logger.Error("Workflow run halted", "stage", fatal.Stage, "error", fatal.Err)
			return writeProblem(c, ProblemDetails{
				Type:   "about:blank",
				Title:  "Workflow run halted",
				Status: http.StatusInternalServerError,
				Detail: err.Error(),
				Stage:  fatal.Stage,
			})
		}
		s.logger.Error("Workflow run failed", "error", err)
		return writeError(c, http.StatusInternalServerError, "Workflow run failed", err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) resolveSignals(req RunRequest) (models.ExternalSignals, error) {
	if len(req.Signals) > 0 && string(req.Signals) != "null" {
		return state.DecodeSignals(req.Signals)
	}
	if s.scenarios == nil {
		return models.ExternalSignals{}, errors.New("no scenarios available, provide signals")
	}
	key := req.Scenario
	if key == "" {
		key = s.defaultScenario
	}
	sc, ok := s.scenarios.Get(key)
	if !ok {
		return models.ExternalSignals{}, errors.New("unknown scenario: " + key)
	}
	return sc.Signals(), nil
}

// LatestRun returns the most recent completed run
// (GET /api/v1/runs/latest)
func (s *Server) LatestRun(c echo.Context) error {
	res := s.runs.Latest()
	if res == nil {
		return writeError(c, http.StatusNotFound, "No runs yet", "no workflow run has completed")
	}
	return c.JSON(http.StatusOK, res)
}

// ListRuns returns recent runs, newest first
// (GET /api/v1/runs)
func (s *Server) ListRuns(c echo.Context) error {
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid limit", err.Error())
	}
	return c.JSON(http.StatusOK, s.runs.Recent(limit))
}

// ListScenarios returns the built-in crisis scenarios
// (GET /api/v1/scenarios)
func (s *Server) ListScenarios(c echo.Context) error {
	if s.scenarios == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, s.scenarios.List())
}

// Stream upgrades to a websocket streaming run updates
// (GET /api/v1/ws)
func (s *Server) Stream(c echo.Context) error {
	if s.stream == nil {
		return writeError(c, http.StatusServiceUnavailable, "Streaming unavailable", "no broker configured")
	}
	s.stream.ServeWS(c.Response(), c.Request())
	return nil
}

// queryInt binds an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	n := def
	if err := runtime.BindQueryParameter("form", true, false, name, c.QueryParams(), &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %d", name, n)
	}
	return n, nil
}
