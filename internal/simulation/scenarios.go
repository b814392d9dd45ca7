// Package simulation provides canned crisis scenarios used to drive demo
// and scheduled runs.
package simulation

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"arogya-swarm/backend/pkg/models"

	"gopkg.in/yaml.v3"
)

// DefaultScenario is used when a requested scenario is unknown.
const DefaultScenario = "pollution"

//go:embed scenarios.yaml
var builtin []byte

// Scenario describes one crisis.
type Scenario struct {
	Key                 string             `yaml:"-" json:"key"`
	Name                string             `yaml:"name" json:"name"`
	Description         string             `yaml:"description" json:"description"`
	AQI                 int                `yaml:"aqi" json:"aqi"`
	ExpectedSurgePct    float64            `yaml:"expected_surge_pct" json:"expected_surge_pct"`
	AffectedDepartments []string           `yaml:"affected_departments" json:"affected_departments"`
	DurationHours       int                `yaml:"duration_hours" json:"duration_hours"`
	Severity            models.Likelihood  `yaml:"severity" json:"severity"`
	Weather             models.Weather     `yaml:"weather" json:"weather"`
	Events              []string           `yaml:"events" json:"events"`
	Sentiment           map[string]float64 `yaml:"sentiment" json:"sentiment"`
}

// Signals converts the scenario into workflow inputs.
func (s Scenario) Signals() models.ExternalSignals {
	sentiment := make(map[string]float64, len(s.Sentiment))
	for k, v := range s.Sentiment {
		sentiment[k] = v
	}
	return models.ExternalSignals{
		AQI:       s.AQI,
		Weather:   s.Weather,
		Events:    slices.Clone(s.Events),
		Sentiment: sentiment,
	}
}

// Catalog is a read-only set of scenarios.
type Catalog struct {
	scenarios map[string]Scenario
}

// Builtin returns the embedded pollution, dengue and trauma scenarios.
func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

// Parse reads a scenarios document.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Scenarios map[string]Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}
	if len(doc.Scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios defined")
	}
	c := &Catalog{scenarios: make(map[string]Scenario, len(doc.Scenarios))}
	for key, s := range doc.Scenarios {
		if !s.Severity.Valid() {
			return nil, fmt.Errorf("scenario %s: invalid severity %q", key, s.Severity)
		}
		s.Key = key
		c.scenarios[key] = s
	}
	return c, nil
}

// Get returns the named scenario.
func (c *Catalog) Get(key string) (Scenario, bool) {
	s, ok := c.scenarios[strings.ToLower(strings.TrimSpace(key))]
	return s, ok
}

// Lookup returns the named scenario, falling back to DefaultScenario.
func (c *Catalog) Lookup(key string) Scenario {
	if s, ok := c.Get(key); ok {
		return s
	}
	if s, ok := c.scenarios[DefaultScenario]; ok {
		return s
	}
	return c.List()[0]
}

// List returns all scenarios sorted by key.
func (c *Catalog) List() []Scenario {
	out := make([]Scenario, 0, len(c.scenarios))
	for _, s := range c.scenarios {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Scenario) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// Source feeds one scenario's signals to the scheduler.
type Source struct {
	scenario Scenario
}

// NewSource returns a signal source for the named scenario.
func (c *Catalog) NewSource(key string) *Source {
	return &Source{scenario: c.Lookup(key)}
}

// Signals implements scheduler.SignalSource.
func (s *Source) Signals(context.Context) (models.ExternalSignals, error) {
	return s.scenario.Signals(), nil
}
