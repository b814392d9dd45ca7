package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arogya-swarm/backend/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveResults stores every recommendation of a run as a pending row, with
// the produced artifact or error as its outcome. All rows are written in one
// transaction.
func (s *PostgresStore) SaveResults(ctx context.Context, runID string, results []models.ActionResult) ([]models.Recommendation, error) {
	saved := make([]models.Recommendation, 0, len(results))
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, r := range results {
			rec := r.Recommendation
			rec.ID = uuid.New().String()
			rec.Status = models.StatusPending
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = time.Now().UTC()
			}

			outcome, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to encode outcome: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO recommendations (id, run_id, recommendation_type, title, priority,
					estimated_cost_impact, reasoning, status, created_by_agent, created_at, outcome)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				rec.ID, runID, string(rec.Type), rec.Title, string(rec.Priority),
				rec.EstimatedCostImpact, rec.Reasoning, string(rec.Status), rec.CreatedByAgent, rec.CreatedAt, outcome)
			if err != nil {
				return fmt.Errorf("failed to insert recommendation: %w", err)
			}
			saved = append(saved, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ListRecommendations returns the newest recommendations first.
func (s *PostgresStore) ListRecommendations(ctx context.Context, status models.RecommendationStatus, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, recommendation_type, title, COALESCE(priority, ''),
			COALESCE(estimated_cost_impact, 0)::float8, COALESCE(reasoning, ''), status,
			COALESCE(created_by_agent, ''), created_at
		FROM recommendations
		WHERE $1::text = '' OR status = $1::text
		ORDER BY created_at DESC
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	recs := []models.Recommendation{}
	for rows.Next() {
		var (
			rec                   models.Recommendation
			typ, priority, status string
		)
		if err := rows.Scan(&rec.ID, &typ, &rec.Title, &priority, &rec.EstimatedCostImpact, &rec.Reasoning,
			&status, &rec.CreatedByAgent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		rec.Type = models.RecommendationType(typ)
		rec.Priority = models.Priority(priority)
		rec.Status = models.RecommendationStatus(status)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recommendations: %w", err)
	}
	return recs, nil
}

// CostSummary aggregates approved recommendations.
func (s *PostgresStore) CostSummary(ctx context.Context) (models.CostSummary, error) {
	var (
		savings, costs float64
		approved       int
	)
	err := s.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(estimated_cost_impact) FILTER (WHERE estimated_cost_impact > 0), 0)::float8,
			COALESCE(-SUM(estimated_cost_impact) FILTER (WHERE estimated_cost_impact < 0), 0)::float8,
			COUNT(*)
		FROM recommendations
		WHERE status = 'approved'`).Scan(&savings, &costs, &approved)
	if err != nil {
		return models.CostSummary{}, fmt.Errorf("failed to summarise costs: %w", err)
	}
	return SummarizeCosts(savings, costs, approved), nil
}
