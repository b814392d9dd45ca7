package api

import (
	"net/http"

	"arogya-swarm/backend/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// ListRecommendations returns persisted recommendations
// (GET /api/v1/recommendations?status=pending&limit=50)
func (s *Server) ListRecommendations(c echo.Context) error {
	if s.store == nil {
		return writeError(c, http.StatusServiceUnavailable, "Store unavailable", "no recommendation store configured")
	}
	var status models.RecommendationStatus
	if err := runtime.BindQueryParameter("form", true, false, "status", c.QueryParams(), &status); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid status", err.Error())
	}
	switch status {
	case "", models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		return writeError(c, http.StatusBadRequest, "Invalid status", "status must be pending, approved or rejected")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid limit", err.Error())
	}

	recs, err := s.store.ListRecommendations(c.Request().Context(), status, limit)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "Failed to list recommendations", err.Error())
	}
	return c.JSON(http.StatusOK, recs)
}

// CostSavings summarizes approved recommendations
// (GET /api/v1/analytics/cost-savings)
func (s *Server) CostSavings(c echo.Context) error {
	if s.store == nil {
		return writeError(c, http.StatusServiceUnavailable, "Store unavailable", "no recommendation store configured")
	}
	summary, err := s.store.CostSummary(c.Request().Context())
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "Failed to compute cost summary", err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// StaffAvailability returns the roster grouped by shift and role
// (GET /api/v1/resources/staff)
func (s *Server) StaffAvailability(c echo.Context) error {
	if s.resources == nil {
		return writeError(c, http.StatusServiceUnavailable, "Resources unavailable", "no resource provider configured")
	}
	staff, err := s.resources.GetStaffAvailability(c.Request().Context())
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "Failed to load staff", err.Error())
	}
	return c.JSON(http.StatusOK, staff)
}

// Inventory returns stock levels
// (GET /api/v1/resources/inventory?critical_only=true)
func (s *Server) Inventory(c echo.Context) error {
	if s.resources == nil {
		return writeError(c, http.StatusServiceUnavailable, "Resources unavailable", "no resource provider configured")
	}
	criticalOnly := false
	if err := runtime.BindQueryParameter("form", true, false, "critical_only", c.QueryParams(), &criticalOnly); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid critical_only", err.Error())
	}
	items, err := s.resources.GetInventoryStatus(c.Request().Context(), criticalOnly)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "Failed to load inventory", err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// PatientQueue returns waiting patients per department
// (GET /api/v1/resources/queue)
func (s *Server) PatientQueue(c echo.Context) error {
	if s.resources == nil {
		return writeError(c, http.StatusServiceUnavailable, "Resources unavailable", "no resource provider configured")
	}
	queue, err := s.resources.GetPatientQueueLength(c.Request().Context())
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "Failed to load patient queue", err.Error())
	}
	return c.JSON(http.StatusOK, queue)
}
