package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"arogya-swarm/backend/internal/repository"
	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/internal/services"
)

// Deps are the collaborators shared by every handler. They are injected once
// when the handlers are built.
type Deps struct {
	Resources repository.ResourceProvider
	Reasoner  services.Reasoner
	Policy    retry.Policy
	Logger    Logger
}

func (d Deps) validate() error {
	if d.Resources == nil {
		return errors.New("resource provider is required")
	}
	if d.Reasoner == nil {
		return errors.New("reasoner is required")
	}
	return nil
}

func (d Deps) logger() Logger {
	if d.Logger == nil {
		return nopLogger{}
	}
	return d.Logger
}

// draft asks the reasoning service for a JSON document and decodes it into v.
func (d Deps) draft(ctx context.Context, prompt string, v any) error {
	raw, err := retry.Do(ctx, d.Policy, func(ctx context.Context) (string, error) {
		return d.Reasoner.Invoke(ctx, prompt)
	})
	if err != nil {
		return fmt.Errorf("failed to invoke reasoning service: %w", err)
	}
	if err := services.DecodeJSON(raw, v); err != nil {
		return fmt.Errorf("failed to parse draft: %w", err)
	}
	return nil
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
