package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"claims-portal/internal/assistant"
	"claims-portal/internal/config"
	"claims-portal/internal/external"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <claim-id>",
		Short: "Run the approver analysis for a seeded claim",
		Long: `analyze builds the approver analysis for a claim from the seed fixture.
Without an AI API key (PORTAL_AI_APIKEY) the local summary is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := loadFixture(cmd)
			if err != nil {
				return err
			}
			var found bool
			for _, c := range fx.Claims {
				if c.ID != args[0] {
					continue
				}
				found = true

				cfg, err := config.Load()
				if err != nil {
					return err
				}
				logger := logrus.New()
				logger.SetOutput(cmd.ErrOrStderr())

				gemini := external.NewGemini(external.GeminiConfig{
					APIKey:  cfg.AI.APIKey,
					BaseURL: cfg.AI.BaseURL,
					Models:  cfg.AI.Models,
					Logger:  logger,
				})
				if !gemini.Enabled() {
					fmt.Fprintln(cmd.ErrOrStderr(), external.DisabledMessage)
					fmt.Fprintln(cmd.OutOrStdout(), assistant.FallbackSummary(c))
					return nil
				}

				text, err := assistant.New(gemini, logger).Analyze(cmd.Context(), c)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			if !found {
				return fmt.Errorf("claim %s is not in the seed fixture", args[0])
			}
			return nil
		},
	}
}
