package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arogya-swarm/backend/pkg/models"
)

// AdvisoryHandler drafts patient advisories in English, Hindi and Marathi.
type AdvisoryHandler struct {
	deps     Deps
	hospital string
}

// NewAdvisoryHandler creates an AdvisoryHandler. hospital is quoted in the
// drafted messages.
func NewAdvisoryHandler(deps Deps, hospital string) (*AdvisoryHandler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &AdvisoryHandler{deps: deps, hospital: hospital}, nil
}

// Type implements Handler.
func (h *AdvisoryHandler) Type() models.RecommendationType {
	return models.RecommendationPatientAdvisory
}

// Handle implements Handler. An advisory without English text is an error.
func (h *AdvisoryHandler) Handle(ctx context.Context, rec models.Recommendation) (*models.Artifact, error) {
	queue, err := h.deps.Resources.GetPatientQueueLength(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient queue: %w", err)
	}

	var advisory models.PatientAdvisory
	if err := h.deps.draft(ctx, h.prompt(rec, queue), &advisory); err != nil {
		return nil, err
	}

	messages := make(map[string]string, len(advisory.Messages))
	for lang, text := range advisory.Messages {
		if text = strings.TrimSpace(text); text != "" {
			messages[strings.ToLower(lang)] = text
		}
	}
	if messages["en"] == "" {
		return nil, errors.New("advisory has no English message")
	}
	advisory.Messages = messages
	return &models.Artifact{Advisory: &advisory}, nil
}

func (h *AdvisoryHandler) prompt(rec models.Recommendation, queue models.PatientQueue) string {
	hospital := h.hospital
	if hospital == "" {
		hospital = "the hospital"
	}
	return fmt.Sprintf(`You are a Patient Advisory Agent for %s. Create a helpful, empathetic message for patients.

Situation: %s
Current Wait Times:
%s

Generate messages in English, Hindi and Marathi. Include the current wait time estimate,
alternative options (teleconsult, nearby hospitals) and when to come immediately versus wait.

Output JSON format:
{
  "messages": {"en": "SMS text in English", "hi": "SMS text in Hindi", "mr": "SMS text in Marathi"},
  "alternative_hospitals": ["Hospital A - 2km", "Hospital B - 5km"],
  "teleconsult_link": "https://hospital.com/teleconsult"
}`, hospital, rec.Reasoning, indent(queue))
}
