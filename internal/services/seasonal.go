package services

import (
	"context"
	"errors"
	"math"
	"time"

	"arogya-swarm/backend/pkg/models"
)

// SeasonalForecaster is an in-process Forecaster used when no forecasting
// sidecar is configured: weekly seasonal-naive with drift.
type SeasonalForecaster struct {
	Period  int
	Horizon int
	Step    time.Duration
}

// NewSeasonalForecaster forecasts horizon daily steps with a weekly season.
func NewSeasonalForecaster(horizon int) *SeasonalForecaster {
	if horizon <= 0 {
		horizon = 2
	}
	return &SeasonalForecaster{Period: 7, Horizon: horizon, Step: 24 * time.Hour}
}

// Forecast implements Forecaster.
func (f *SeasonalForecaster) Forecast(ctx context.Context, series []models.CountPoint) (models.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return models.Forecast{}, err
	}
	n := len(series)
	if n < 2 {
		return models.Forecast{}, errors.New("forecast requires at least two observations")
	}

	period := f.Period
	if period <= 0 || n <= period {
		period = 1
	}

	var drift float64
	if n >= 2*period {
		drift = (mean(series[n-period:]) - mean(series[n-2*period:n-period])) / float64(period)
	}

	var residuals []float64
	for i := period; i < n; i++ {
		residuals = append(residuals, series[i].Count-series[i-period].Count)
	}
	band := 1.96 * stddev(residuals)

	last := series[n-1]
	points := make([]models.ForecastPoint, 0, f.Horizon)
	for h := 1; h <= f.Horizon; h++ {
		seasonal := series[n-period+(h-1)%period].Count
		est := seasonal + drift*float64(h)
		points = append(points, models.ForecastPoint{
			Timestamp:  last.Timestamp.Add(time.Duration(h) * f.Step),
			Estimate:   round1(est),
			LowerBound: round1(est - band),
			UpperBound: round1(est + band),
		})
	}

	var increase float64
	if last.Count != 0 {
		increase = round1((points[len(points)-1].Estimate - last.Count) / last.Count * 100)
	}
	return models.Forecast{PredictedIncreasePct: increase, Points: points}, nil
}

// SyntheticArrivals builds a weekly-seasonal daily arrival series ending at
// end, with a step up over the last ten days.
func SyntheticArrivals(end time.Time, days int) []models.CountPoint {
	out := make([]models.CountPoint, days)
	start := end.AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		count := 120 + (i%7)*15
		if i > 20 {
			count += 20
		}
		out[i] = models.CountPoint{Timestamp: start.AddDate(0, 0, i), Count: float64(count)}
	}
	return out
}

func mean(points []models.CountPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Count
	}
	return sum / float64(len(points))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	m := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
