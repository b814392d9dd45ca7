// Package forecast merges the qualitative model assessment with the
// quantitative forecast into a single surge prediction.
package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"arogya-swarm/backend/internal/services"
	"arogya-swarm/backend/pkg/models"
)

// defaultIncrease is assumed when the assessment omits predicted_patient_increase.
const defaultIncrease = "20"

// ParseError reports a qualitative assessment that could not be used.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable assessment: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Assessment is the qualitative output requested from the reasoning service.
type Assessment struct {
	SurgeLikelihood          string       `json:"surge_likelihood"`
	ConfidenceScore          *json.Number `json:"confidence_score"`
	PredictedPatientIncrease string       `json:"predicted_patient_increase"`
	DepartmentsAffected      []string     `json:"departments_affected"`
	TimeHorizon              string       `json:"time_horizon"`
	Reasoning                string       `json:"reasoning"`
	RecommendedActions       []string     `json:"recommended_actions"`
}

// ParseAssessment decodes raw model output. Any failure is a *ParseError.
func ParseAssessment(raw string) (Assessment, error) {
	var a Assessment
	if err := services.DecodeJSON(raw, &a); err != nil {
		return Assessment{}, &ParseError{Raw: raw, Err: err}
	}
	if a.SurgeLikelihood == "" || a.ConfidenceScore == nil {
		return Assessment{}, &ParseError{Raw: raw, Err: errors.New("missing surge_likelihood or confidence_score")}
	}
	if _, err := a.Confidence(); err != nil {
		return Assessment{}, &ParseError{Raw: raw, Err: err}
	}
	return a, nil
}

// Confidence returns confidence_score rounded to the nearest integer and
// clamped to 0..100. The model may send it as a number or a numeric string.
func (a Assessment) Confidence() (int, error) {
	if a.ConfidenceScore == nil {
		return 0, errors.New("missing confidence_score")
	}
	v, err := a.ConfidenceScore.Float64()
	if err != nil || !finite(v) {
		return 0, fmt.Errorf("invalid confidence_score %q", a.ConfidenceScore.String())
	}
	return int(math.Round(math.Max(0, math.Min(v, 100)))), nil
}

// ParseIncrease reads a percentage such as "22%", "22" or "+22.5 %".
func ParseIncrease(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q: %w", s, err)
	}
	if !finite(v) {
		return 0, fmt.Errorf("invalid percentage %q: not a finite number", s)
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DefaultPrediction is the conservative record used when the assessment
// cannot be parsed.
func DefaultPrediction() models.SurgePrediction {
	return models.SurgePrediction{
		Likelihood:      models.LikelihoodMedium,
		ConfidenceScore: 60,
		TimeHorizon:     models.Horizon24h,
		Reasoning:       "Analysis in progress",
	}
}

// Config holds the agreement rule.
type Config struct {
	AgreementThreshold float64
	AgreementBonus     int
	ConfidenceCap      int
}

// DefaultConfig is a 10 point threshold, +15 bonus, capped at 95.
func DefaultConfig() Config {
	return Config{AgreementThreshold: 10, AgreementBonus: 15, ConfidenceCap: 95}
}

// Validate rejects settings that would break the confidence bounds.
func (c Config) Validate() error {
	if c.AgreementThreshold <= 0 {
		return errors.New("agreement threshold must be positive")
	}
	if c.AgreementBonus < 0 {
		return errors.New("agreement bonus cannot be negative")
	}
	if c.ConfidenceCap < 0 || c.ConfidenceCap > 100 {
		return fmt.Errorf("confidence cap %d outside 0..100", c.ConfidenceCap)
	}
	return nil
}

// Logger is the logging interface used by the blender.
type Logger interface {
	Warn(msg string, args ...any)
}

// Blender combines the two predictions.
type Blender struct {
	cfg    Config
	logger Logger
}

// NewBlender validates cfg and returns a Blender.
func NewBlender(cfg Config, logger Logger) (*Blender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Blender{cfg: cfg, logger: logger}, nil
}

// Result is a blended prediction plus whether it fell back to the default.
type Result struct {
	Prediction models.SurgePrediction
	ParseErr   error
}

// Degraded reports whether the default record was substituted.
func (r Result) Degraded() bool { return r.ParseErr != nil }

// Blend parses raw and merges it with fc. fc may be nil when the
// forecaster was unavailable, in which case no agreement bonus applies.
// Parse failures yield DefaultPrediction with the forecast attached.
func (b *Blender) Blend(raw string, fc *models.Forecast) Result {
	if fc != nil && !finite(fc.PredictedIncreasePct) {
		b.warn("statistical forecast is not finite, ignoring it", "predicted_increase_pct", fc.PredictedIncreasePct)
		fc = nil
	}
	var attached *models.Forecast
	if fc != nil {
		copied := *fc
		copied.Points = slices.Clone(fc.Points)
		attached = &copied
	}

	a, err := ParseAssessment(raw)
	if err != nil {
		b.warn("qualitative assessment unusable, using default", "error", err)
		p := DefaultPrediction()
		p.StatisticalForecast = attached
		return Result{Prediction: p, ParseErr: err}
	}

	confidence, _ := a.Confidence()
	p := models.SurgePrediction{
		Likelihood:          models.Likelihood(strings.ToLower(strings.TrimSpace(a.SurgeLikelihood))),
		ConfidenceScore:     confidence,
		AffectedDepartments: dedupe(a.DepartmentsAffected),
		TimeHorizon:         horizon(a.TimeHorizon),
		Reasoning:           a.Reasoning,
		RecommendedActions:  a.RecommendedActions,
		StatisticalForecast: attached,
	}

	increaseText := a.PredictedPatientIncrease
	if strings.TrimSpace(increaseText) == "" {
		increaseText = defaultIncrease
	}
	increase, err := ParseIncrease(increaseText)
	if err != nil {
		b.warn("predicted increase unparseable, skipping agreement check", "value", increaseText, "error", err)
		if fc != nil {
			p.PredictedIncreasePct = fc.PredictedIncreasePct
		}
		return Result{Prediction: p}
	}
	p.PredictedIncreasePct = increase

	if fc != nil && math.Abs(increase-fc.PredictedIncreasePct) < b.cfg.AgreementThreshold {
		p.ConfidenceScore = min(p.ConfidenceScore+b.cfg.AgreementBonus, b.cfg.ConfidenceCap)
	}
	return Result{Prediction: p}
}

func (b *Blender) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func horizon(s string) models.TimeHorizon {
	if models.TimeHorizon(strings.TrimSpace(s)) == models.Horizon48h {
		return models.Horizon48h
	}
	return models.Horizon24h
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
