package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/Veraticus/local-guide/internal/eval"
	"github.com/spf13/cobra"
)

func evalCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "eval [suite.yaml]",
		Short: "Run a question suite against the pipeline",
		Long: `Run a YAML suite of questions with expected outcomes (answer or refusal,
optionally a specific refusal phrase). Without a file the built-in suite for
Madurai and Dindigul is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				suite eval.Suite
				err   error
			)
			if len(args) == 1 {
				suite, err = eval.LoadSuite(args[0])
			} else {
				suite, err = eval.DefaultSuite()
			}
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(a *app) error {
				opts := []eval.RunnerOption{eval.WithLogger(a.logger)}
				if !quiet {
					opts = append(opts, eval.WithProgress(cmd.ErrOrStderr()))
				}

				report, err := eval.NewRunner(a.engine, opts...).Run(cmd.Context(), suite)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, f := range report.Failures() {
					fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s [%s] %q: %s",
						f.Scenario.Name, f.Scenario.City, f.Scenario.Prompt, f.Failure)))
				}
				summary := fmt.Sprintf("%d passed, %d failed in %s", report.Passed, report.Failed, report.Duration.Round(time.Millisecond))
				if !report.OK() {
					fmt.Fprintln(out, cli.FormatWarning(summary))
					return fmt.Errorf("suite %s: %d scenario(s) failed", report.Suite, report.Failed)
				}
				fmt.Fprintln(out, cli.FormatSuccess(summary))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}
