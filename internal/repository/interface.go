package repository

import (
	"context"

	"arogya-swarm/backend/pkg/models"
)

// ResourceProvider is the read-only view of hospital resources consumed by
// the workflow stages and sub-agent handlers.
type ResourceProvider interface {
	// GetStaffAvailability groups the roster by shift and role.
	GetStaffAvailability(ctx context.Context) (models.StaffAvailability, error)
	// GetInventoryStatus lists stock lines, only those below threshold when criticalOnly is set.
	GetInventoryStatus(ctx context.Context, criticalOnly bool) ([]models.InventoryItem, error)
	// GetPatientQueueLength summarises waiting patients per department.
	GetPatientQueueLength(ctx context.Context) (models.PatientQueue, error)
}

// ArrivalHistory supplies the daily patient arrival series fed to the forecaster.
type ArrivalHistory interface {
	// DailyArrivals returns up to days daily counts, oldest first.
	DailyArrivals(ctx context.Context, days int) ([]models.CountPoint, error)
}

// RecommendationStore hands recommendations off to the approval workflow.
type RecommendationStore interface {
	// SaveResults persists the recommendations of a run as pending rows
	// and returns them with their generated identifiers.
	SaveResults(ctx context.Context, runID string, results []models.ActionResult) ([]models.Recommendation, error)
	// ListRecommendations returns the newest recommendations, filtered by
	// status when status is not empty.
	ListRecommendations(ctx context.Context, status models.RecommendationStatus, limit int) ([]models.Recommendation, error)
	// CostSummary aggregates the cost impact of approved recommendations.
	CostSummary(ctx context.Context) (models.CostSummary, error)
}

// Repository is everything the PostgreSQL store provides.
type Repository interface {
	ResourceProvider
	ArrivalHistory
	RecommendationStore
	Ping(ctx context.Context) error
}
