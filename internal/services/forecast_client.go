package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/pkg/models"
)

// HTTPForecaster is an HTTP implementation of the Forecaster interface
// backed by the forecasting sidecar.
type HTTPForecaster struct {
	url     string
	horizon int
	client  *http.Client
}

// NewHTTPForecaster creates a new HTTPForecaster.
func NewHTTPForecaster(url string, horizon int) *HTTPForecaster {
	return &HTTPForecaster{url: url, horizon: horizon, client: http.DefaultClient}
}

type forecastRequest struct {
	Series  []models.CountPoint `json:"series"`
	Horizon int                 `json:"horizon"`
}

// Forecast posts the series to the sidecar and decodes its forecast.
func (c *HTTPForecaster) Forecast(ctx context.Context, series []models.CountPoint) (models.Forecast, error) {
	requestBody, err := json.Marshal(forecastRequest{Series: series, Horizon: c.horizon})
	if err != nil {
		return models.Forecast{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/forecast", bytes.NewBuffer(requestBody))
	if err != nil {
		return models.Forecast{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return models.Forecast{}, retry.RateLimited(fmt.Errorf("forecaster: status code %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return models.Forecast{}, fmt.Errorf("failed to get forecast: status code %d", resp.StatusCode)
	}

	var forecast models.Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return models.Forecast{}, fmt.Errorf("failed to decode response body: %w", err)
	}

	return forecast, nil
}
