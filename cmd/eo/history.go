package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nelson137/dot/internal/config"
	"github.com/nelson137/dot/internal/report"
)

var errHistoryDisabled = errors.New("run history is disabled; set history.path in .eo.yaml or EO_HISTORY")

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List recorded runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("determining workspace: %w", err)
			}
			loaded, err := config.Load(workspace)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			store, closeStore, err := openHistory(loaded.Config)
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return errHistoryDisabled
			}

			if len(args) == 1 {
				return showRun(cmd.OutOrStdout(), store, args[0], jsonOut)
			}
			return listRuns(cmd.OutOrStdout(), store, limit, jsonOut)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func showRun(w io.Writer, store report.Store, id string, jsonOut bool) error {
	r, err := store.Load(id)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, r)
	}
	fmt.Fprint(w, report.Format(r))
	return nil
}

func listRuns(w io.Writer, l report.Lister, limit int, jsonOut bool) error {
	runs, err := l.List(limit)
	if err != nil {
		return err
	}
	if jsonOut {
		if runs == nil {
			runs = []*report.RunResult{}
		}
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintln(w, r.Summary())
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
