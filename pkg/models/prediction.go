// Package models defines the domain records shared by the surge pipeline
package models

import "time"

// Likelihood is the qualitative surge severity
type Likelihood string

const (
	LikelihoodLow      Likelihood = "low"
	LikelihoodMedium   Likelihood = "medium"
	LikelihoodHigh     Likelihood = "high"
	LikelihoodCritical Likelihood = "critical"
)

// Valid reports whether l is one of the four known severities.
func (l Likelihood) Valid() bool {
	switch l {
	case LikelihoodLow, LikelihoodMedium, LikelihoodHigh, LikelihoodCritical:
		return true
	default:
		return false
	}
}

// TimeHorizon is the window a prediction covers
type TimeHorizon string

const (
	Horizon24h TimeHorizon = "24h"
	Horizon48h TimeHorizon = "48h"
)

// Weather is a structured weather reading
type Weather struct {
	TemperatureC float64 `json:"temperature_c" yaml:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct" yaml:"humidity_pct"`
	Condition    string  `json:"condition" yaml:"condition"`
	WindKph      float64 `json:"wind_kph,omitempty" yaml:"wind_kph,omitempty"`
}

// ExternalSignals are the read-only inputs of a run
type ExternalSignals struct {
	AQI       int                `json:"aqi"`
	Weather   Weather            `json:"weather"`
	Events    []string           `json:"events"`
	Sentiment map[string]float64 `json:"sentiment"`
}

// ForecastPoint is one forecast step with its uncertainty band
type ForecastPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Estimate   float64   `json:"point_estimate"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// Forecast is the quantitative forecaster's output
type Forecast struct {
	PredictedIncreasePct float64         `json:"predicted_increase_pct"`
	Points               []ForecastPoint `json:"forecast_points"`
}

// CountPoint is one observation of the arrival series
type CountPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Count     float64   `json:"count"`
}

// SurgePrediction is the blended assessment written by the Sentinel stage
type SurgePrediction struct {
	Likelihood           Likelihood  `json:"likelihood"`
	ConfidenceScore      int         `json:"confidence_score"`
	PredictedIncreasePct float64     `json:"predicted_increase_pct"`
	AffectedDepartments  []string    `json:"affected_departments"`
	TimeHorizon          TimeHorizon `json:"time_horizon"`
	Reasoning            string      `json:"reasoning"`
	RecommendedActions   []string    `json:"recommended_actions,omitempty"`
	StatisticalForecast  *Forecast   `json:"statistical_forecast,omitempty"`
}

// Escalates reports whether the prediction warrants the action path.
func (p *SurgePrediction) Escalates() bool {
	if p == nil {
		return false
	}
	return p.Likelihood == LikelihoodHigh || p.Likelihood == LikelihoodCritical
}
