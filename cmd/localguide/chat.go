package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/pipeline"
	"github.com/Veraticus/local-guide/internal/tui"
	"github.com/Veraticus/local-guide/internal/tui/themes"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var (
		city    string
		theme   string
		plain   bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Start an interactive session bound to one city. Use /city <name> to switch;
switching clears the conversation so nothing carries over between cities.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, ok := themes.ByName(theme)
			if !ok {
				return fmt.Errorf("unknown theme %q", theme)
			}

			return withApp(cmd.Context(), func(a *app) error {
				session := a.engine.NewSession()
				defer func() { _ = a.engine.CloseSession(session.ID()) }()

				if city != "" {
					if _, err := session.SelectCity(cmd.Context(), model.NormalizeCity(city)); err != nil {
						return err
					}
				}

				if plain {
					return runPlainChat(cmd.Context(), a, session, cmd.InOrStdin(), cmd.OutOrStdout(), verbose)
				}
				return tui.Run(cmd.Context(), session, a.engine, a.engine.Cities(),
					tui.WithTheme(t),
					tui.WithVerbose(verbose))
			})
		},
	}

	cmd.Flags().StringVarP(&city, "city", "c", "", "city to start with")
	cmd.Flags().StringVar(&theme, "theme", "default", "color theme (default, catppuccin)")
	cmd.Flags().BoolVar(&plain, "plain", false, "line-based chat without the full-screen UI")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show why a question was refused")

	return cmd
}

// runPlainChat is the line-oriented fallback for terminals without a TUI.
func runPlainChat(ctx context.Context, a *app, session *pipeline.Session, in io.Reader, out io.Writer, verbose bool) error {
	interrupts := cli.NewInterruptHandler(out)
	if a.store != nil {
		interrupts.SetFarewell("History saved to " + a.store.Path())
	}
	ctx = interrupts.HandleInterrupts(ctx)
	defer interrupts.Stop()
	reader := cli.NewLineReader(in)

	fmt.Fprintln(out, cli.FormatTitle("Local Guide"))
	fmt.Fprintln(out, cli.FormatInfo("Commands: /city <name>, /stats, /history, /quit"))

	for {
		fmt.Fprint(out, cli.FormatPrompt(session.City().Title()))
		line, err := reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, cli.ErrInputCancelled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := plainCommand(ctx, a, session, out, line)
			if err != nil {
				fmt.Fprintln(out, cli.FormatError(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		resp, err := session.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(out, cli.FormatError(err.Error()))
			continue
		}
		fmt.Fprintln(out, cli.RenderResponse(resp, verbose))
	}
}

func plainCommand(ctx context.Context, a *app, session *pipeline.Session, out io.Writer, line string) (bool, error) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	switch strings.ToLower(name) {
	case "city":
		if strings.TrimSpace(arg) == "" {
			fmt.Fprintln(out, cli.FormatInfo("Cities: "+cityList(a.engine.Cities())))
			return false, nil
		}
		c, err := session.SelectCity(ctx, model.NormalizeCity(arg))
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, cli.FormatSuccess("Now answering questions about "+c.City.Title()+"."))
	case "stats":
		fmt.Fprintln(out, cli.RenderStats(session.Stats()))
	case "history":
		fmt.Fprintln(out, cli.RenderHistory(session.History()))
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command /%s", name)
	}
	return false, nil
}

func cityList(cities []model.City) string {
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		names = append(names, c.Title())
	}
	return strings.Join(names, ", ")
}
