package repository

import (
	"context"
	"fmt"
	"math"

	"arogya-swarm/backend/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables read and written by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS staff (
	id UUID PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	role VARCHAR(50) NOT NULL,
	specialization VARCHAR(100),
	department VARCHAR(50),
	shift VARCHAR(20),
	status VARCHAR(20) NOT NULL DEFAULT 'available',
	hours_worked_week INT NOT NULL DEFAULT 0,
	fatigue_score INT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS inventory (
	id UUID PRIMARY KEY,
	item_name VARCHAR(100) NOT NULL,
	category VARCHAR(50),
	current_stock INT NOT NULL,
	minimum_threshold INT NOT NULL,
	unit VARCHAR(20),
	supplier VARCHAR(100),
	unit_cost NUMERIC(10, 2)
);
CREATE TABLE IF NOT EXISTS patient_queue (
	id UUID PRIMARY KEY,
	patient_name VARCHAR(100),
	arrival_time TIMESTAMPTZ NOT NULL DEFAULT now(),
	department VARCHAR(50) NOT NULL,
	priority VARCHAR(20),
	estimated_wait_time INT,
	status VARCHAR(20) NOT NULL DEFAULT 'waiting'
);
CREATE TABLE IF NOT EXISTS recommendations (
	id UUID PRIMARY KEY,
	run_id TEXT,
	recommendation_type VARCHAR(50) NOT NULL,
	title VARCHAR(200) NOT NULL,
	priority VARCHAR(20),
	estimated_cost_impact NUMERIC(15, 2),
	reasoning TEXT,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	created_by_agent VARCHAR(50),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	outcome JSONB
);
`

// PostgresStore is the PostgreSQL implementation of Repository.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates any missing tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// SummarizeCosts builds a CostSummary from approved savings and costs. Costs
// are passed as a positive amount.
func SummarizeCosts(savings, costs float64, approved int) models.CostSummary {
	summary := models.CostSummary{
		TotalSavings:            round(savings, 2),
		TotalCosts:              round(costs, 2),
		NetSavings:              round(savings-costs, 2),
		RecommendationsApproved: approved,
	}
	if costs > 0 {
		summary.ROIPercentage = round(savings/costs*100, 1)
	}
	return summary
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
