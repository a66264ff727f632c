package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var (
		city    string
		verbose bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question about a city",
		Long: `Ask a single question. The answer comes only from the city's knowledge file;
anything else is answered with one of the fixed refusal phrases.`,
		Example: `  localguide ask --city madurai "What is Jigarthanda?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return withApp(cmd.Context(), func(a *app) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout(a.cfg))
				defer cancel()

				session := a.engine.NewSession()
				defer func() { _ = a.engine.CloseSession(session.ID()) }()

				if _, err := session.SelectCity(ctx, model.NormalizeCity(city)); err != nil {
					return err
				}
				resp, err := session.Ask(ctx, question)
				if err != nil {
					return err
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(resp.Envelope())
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderResponse(resp, verbose))
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&city, "city", "c", "", "city to ask about (required)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show why a question was refused")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the response envelope as JSON")
	_ = cmd.MarkFlagRequired("city")

	return cmd
}
