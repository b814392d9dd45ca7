// Package state holds the record threaded through every workflow stage.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"arogya-swarm/backend/pkg/models"
)

// SchemaViolation is returned when an update cannot be merged.
type SchemaViolation struct {
	Field  string
	Reason string
}

func (e *SchemaViolation) Error() string {
	if e.Field == "" {
		return "schema violation: " + e.Reason
	}
	return fmt.Sprintf("schema violation on %s: %s", e.Field, e.Reason)
}

// State is the shared record of a single run. Signals are set once before
// the run starts; the sequence fields only ever grow.
type State struct {
	Signals         models.ExternalSignals  `json:"external_signals"`
	SurgePrediction *models.SurgePrediction `json:"surge_prediction,omitempty"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Messages        []string                `json:"messages"`
	ReasoningChain  []string                `json:"reasoning_chain"`
	ActionResults   []models.ActionResult   `json:"action_results"`
	CurrentAgent    string                  `json:"current_agent"`
	NextAction      string                  `json:"next_action"`

	actionResultsSet bool
}

// New returns an empty state carrying the given signals.
func New(signals models.ExternalSignals) *State {
	return &State{
		Signals:         signals,
		Recommendations: []models.Recommendation{},
		Messages:        []string{},
		ReasoningChain:  []string{},
	}
}

// Update is a stage's partial result. Nil fields are left untouched.
type Update struct {
	SurgePrediction *models.SurgePrediction `json:"surge_prediction,omitempty"`
	Recommendations []models.Recommendation `json:"recommendations,omitempty"`
	Messages        []string                `json:"messages,omitempty"`
	ReasoningChain  []string                `json:"reasoning_chain,omitempty"`
	ActionResults   []models.ActionResult   `json:"action_results,omitempty"`
	CurrentAgent    *string                 `json:"current_agent,omitempty"`
	NextAction      *string                 `json:"next_action,omitempty"`
}

// Str is a convenience for the scalar fields of Update.
func Str(s string) *string {
	return &s
}

// Merge applies u to s. Sequence fields are concatenated, scalars are
// overwritten, and write-once records are rejected on a second write.
// Nothing is applied when an error is returned.
func (s *State) Merge(u Update) error {
	if err := s.check(u); err != nil {
		return err
	}

	if u.SurgePrediction != nil {
		p := clonePrediction(*u.SurgePrediction)
		s.SurgePrediction = &p
	}
	s.Recommendations = append(s.Recommendations, u.Recommendations...)
	s.Messages = append(s.Messages, u.Messages...)
	s.ReasoningChain = append(s.ReasoningChain, u.ReasoningChain...)
	if u.ActionResults != nil {
		s.ActionResults = slices.Clone(u.ActionResults)
		s.actionResultsSet = true
	}
	if u.CurrentAgent != nil {
		s.CurrentAgent = *u.CurrentAgent
	}
	if u.NextAction != nil {
		s.NextAction = *u.NextAction
	}
	return nil
}

func (s *State) check(u Update) error {
	if u.SurgePrediction != nil {
		if s.SurgePrediction != nil {
			return &SchemaViolation{Field: "surge_prediction", Reason: "already written for this run"}
		}
		if c := u.SurgePrediction.ConfidenceScore; c < 0 || c > 100 {
			return &SchemaViolation{Field: "surge_prediction", Reason: fmt.Sprintf("confidence_score %d outside 0..100", c)}
		}
		switch u.SurgePrediction.TimeHorizon {
		case models.Horizon24h, models.Horizon48h:
		default:
			return &SchemaViolation{Field: "surge_prediction", Reason: fmt.Sprintf("unknown time_horizon %q", u.SurgePrediction.TimeHorizon)}
		}
		if !finite(u.SurgePrediction.PredictedIncreasePct) {
			return &SchemaViolation{Field: "surge_prediction", Reason: "predicted_increase_pct is not a finite number"}
		}
		if fc := u.SurgePrediction.StatisticalForecast; fc != nil && !finite(fc.PredictedIncreasePct) {
			return &SchemaViolation{Field: "surge_prediction", Reason: "statistical_forecast.predicted_increase_pct is not a finite number"}
		}
	}
	if u.ActionResults != nil && s.actionResultsSet {
		return &SchemaViolation{Field: "action_results", Reason: "already written for this run"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clone returns a deep copy suitable for handing to a stage as a read-only view.
func (s *State) Clone() State {
	c := State{
		Signals:          cloneSignals(s.Signals),
		Recommendations:  slices.Clone(s.Recommendations),
		Messages:         slices.Clone(s.Messages),
		ReasoningChain:   slices.Clone(s.ReasoningChain),
		ActionResults:    slices.Clone(s.ActionResults),
		CurrentAgent:     s.CurrentAgent,
		NextAction:       s.NextAction,
		actionResultsSet: s.actionResultsSet,
	}
	if s.SurgePrediction != nil {
		p := clonePrediction(*s.SurgePrediction)
		c.SurgePrediction = &p
	}
	return c
}

// Likelihood returns the predicted likelihood, treating an unset
// prediction as low.
func (s *State) Likelihood() models.Likelihood {
	if s.SurgePrediction == nil || s.SurgePrediction.Likelihood == "" {
		return models.LikelihoodLow
	}
	return s.SurgePrediction.Likelihood
}

// DecodeUpdate parses a JSON update, rejecting keys that are not part of
// the state.
func DecodeUpdate(data []byte) (Update, error) {
	var u Update
	if err := decodeStrict(data, &u); err != nil {
		return Update{}, err
	}
	return u, nil
}

// DecodeSignals parses the external signals of a new run.
func DecodeSignals(data []byte) (models.ExternalSignals, error) {
	var sig models.ExternalSignals
	if err := decodeStrict(data, &sig); err != nil {
		return models.ExternalSignals{}, err
	}
	return sig, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &SchemaViolation{Reason: err.Error()}
	}
	if dec.More() {
		return &SchemaViolation{Reason: "trailing data after payload"}
	}
	return nil
}

func cloneSignals(sig models.ExternalSignals) models.ExternalSignals {
	out := sig
	out.Events = slices.Clone(sig.Events)
	if sig.Sentiment != nil {
		out.Sentiment = make(map[string]float64, len(sig.Sentiment))
		for k, v := range sig.Sentiment {
			out.Sentiment[k] = v
		}
	}
	return out
}

func clonePrediction(p models.SurgePrediction) models.SurgePrediction {
	out := p
	out.AffectedDepartments = slices.Clone(p.AffectedDepartments)
	out.RecommendedActions = slices.Clone(p.RecommendedActions)
	if p.StatisticalForecast != nil {
		fc := *p.StatisticalForecast
		fc.Points = slices.Clone(p.StatisticalForecast.Points)
		out.StatisticalForecast = &fc
	}
	return out
}
