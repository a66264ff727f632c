package main

import (
	"fmt"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/Veraticus/local-guide/internal/pipeline"
	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check knowledge files, classifier, generator and guard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				h := a.engine.Health(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderHealth(h))
				if h.Status == pipeline.HealthError {
					return fmt.Errorf("system unhealthy")
				}
				return nil
			})
		},
	}
}
