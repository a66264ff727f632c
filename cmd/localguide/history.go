package main

import (
	"fmt"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/Veraticus/local-guide/internal/storage"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [session-id]",
		Short: "List recorded sessions, or the questions of one session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !appCfg.Database.Enabled {
				return fmt.Errorf("history is disabled")
			}
			store, err := storage.Open(cmd.Context(), appCfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				sessions, err := store.ListSessions(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.RenderSessions(sessions))
				return nil
			}

			session, err := store.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			interactions, err := store.ListInteractions(cmd.Context(), session.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s (%s)", session.ID, session.City.Title())))
			fmt.Fprintln(out, cli.RenderHistory(interactions))
			return nil
		},
	}
}
