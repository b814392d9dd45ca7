package services

import (
	"context"

	"arogya-swarm/backend/pkg/models"
)

// Reasoner is the generative reasoning service. Responses are untrusted
// text and must be parsed defensively.
type Reasoner interface {
	// Invoke sends a prompt and returns the raw response text.
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Forecaster is the quantitative time-series forecaster.
type Forecaster interface {
	// Forecast projects the series forward.
	Forecast(ctx context.Context, series []models.CountPoint) (models.Forecast, error)
}
