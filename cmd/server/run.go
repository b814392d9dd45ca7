package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"arogya-swarm/backend/internal/simulation"
	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/pkg/models"

	"github.com/spf13/cobra"
)

func runCmd(configFile *string) *cobra.Command {
	var (
		scenario    string
		signalsFile string
		persist     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the surge workflow once and print the final state as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			signals, err := loadSignals(scenario, signalsFile)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), *configFile, signals, persist, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", simulation.DefaultScenario, "Crisis scenario: pollution, dengue or trauma")
	cmd.Flags().StringVar(&signalsFile, "signals", "", "JSON file with external signals (overrides --scenario)")
	cmd.Flags().BoolVar(&persist, "persist", false, "Save the recommendations for approval")
	return cmd
}

func loadSignals(scenario, signalsFile string) (models.ExternalSignals, error) {
	if signalsFile != "" {
		data, err := os.ReadFile(signalsFile)
		if err != nil {
			return models.ExternalSignals{}, fmt.Errorf("failed to read signals: %w", err)
		}
		return state.DecodeSignals(data)
	}
	catalog, err := simulation.Builtin()
	if err != nil {
		return models.ExternalSignals{}, err
	}
	sc, ok := catalog.Get(scenario)
	if !ok {
		return models.ExternalSignals{}, fmt.Errorf("unknown scenario %q", scenario)
	}
	return sc.Signals(), nil
}

func runOnce(ctx context.Context, configFile string, signals models.ExternalSignals, persist bool, out io.Writer) error {
	a, err := bootstrap(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.close()

	graph, err := a.buildSwarm(ctx)
	if err != nil {
		return fmt.Errorf("failed to build workflow: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.Workflow.RunTimeout)
	defer cancel()
	res, err := graph.Run(runCtx, state.New(signals))
	if err != nil {
		return err
	}

	if persist && len(res.State.ActionResults) > 0 {
		saved, err := a.store.SaveResults(ctx, res.RunID, res.State.ActionResults)
		if err != nil {
			return fmt.Errorf("failed to persist recommendations: %w", err)
		}
		a.logger.Info("Recommendations saved", "count", len(saved), "run_id", res.RunID)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
