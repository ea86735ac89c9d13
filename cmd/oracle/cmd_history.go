package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"toacrd.app/oracle/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print a user's conversation history",
	Long: `Print the recorded turns of a user, oldest first.

The in-memory backend does not outlive a process, so this is only useful
with HISTORY_BACKEND=redis. With --archived the turns come from the
database archive (DATABASE_URL), which is not bounded by HISTORY_MAX_TURNS.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	e, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	var turns []model.Turn
	if archived {
		turns, err = e.services.ArchivedHistory(ctx, historyUser, limit)
	} else {
		if !e.cfg.History.UsesRedis() {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: in-memory history backend, nothing is kept between runs")
		}
		turns, err = e.services.Orchestrator().History(ctx, historyUser)
	}
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), turns)
	return nil
}

func printHistory(w io.Writer, turns []model.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "Aucun historique.")
		return
	}
	for _, t := range turns {
		line := fmt.Sprintf("[%s] %s: %s", t.CreatedAt.Format("2006-01-02 15:04:05"), t.Role, t.Content)
		if t.Model != "" {
			line += fmt.Sprintf(" (%s)", t.Model)
		}
		fmt.Fprintln(w, line)
	}
}
