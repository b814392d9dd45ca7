package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPForecaster_Forecast(t *testing.T) {
	var got forecastRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predicted_increase_pct":18.0,"forecast_points":[{"timestamp":"2026-01-02T00:00:00Z","point_estimate":170,"lower_bound":150,"upper_bound":190}]}`))
	}))
	defer srv.Close()

	series := SyntheticArrivals(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 30)
	fc, err := NewHTTPForecaster(srv.URL, 2).Forecast(context.Background(), series)
	require.NoError(t, err)

	assert.Equal(t, 18.0, fc.PredictedIncreasePct)
	require.Len(t, fc.Points, 1)
	assert.Equal(t, 170.0, fc.Points[0].Estimate)
	assert.Equal(t, 2, got.Horizon)
	assert.Len(t, got.Series, 30)
}

func TestHTTPForecaster_RateLimitIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTPForecaster(srv.URL, 2).Forecast(context.Background(), []models.CountPoint{{Count: 1}, {Count: 2}})
	assert.ErrorIs(t, err, retry.ErrRateLimited)
}

func TestHTTPForecaster_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPForecaster(srv.URL, 2).Forecast(context.Background(), []models.CountPoint{{Count: 1}, {Count: 2}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, retry.ErrRateLimited)
	assert.Contains(t, err.Error(), "status code 500")
}
