package main

import (
	"fmt"
	"slices"

	"github.com/Veraticus/local-guide/internal/cli"
	"github.com/Veraticus/local-guide/internal/knowledge"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/spf13/cobra"
)

func citiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List configured cities and their knowledge files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			source := knowledge.NewFileSource(appCfg.Knowledge.Dir, 0, nil)
			available, err := source.Available()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Cities"))
			for _, c := range appCfg.Cities {
				fmt.Fprintln(out, cityLine(c, source.Path(c), slices.Contains(available, c)))
			}
			return nil
		},
	}
}

func cityLine(c model.City, path string, present bool) string {
	if present {
		return cli.FormatSuccess(fmt.Sprintf("%-12s %s", c.Title(), path))
	}
	return cli.FormatError(fmt.Sprintf("%-12s %s (missing)", c.Title(), path))
}
