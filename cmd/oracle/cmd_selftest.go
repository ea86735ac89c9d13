package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"toacrd.app/oracle/internal/brain"
)

const (
	selftestQuestion = "Comment fonctionne l'apprentissage supervisé ?"
	selftestWindows  = 3
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Check keyword extraction and corpus search",
	Long: `Run keyword extraction and the corpus scan on a fixed question and print
the keywords, the number of windows found and the first windows.

Nothing is sent to the completion service and no history is written.`,
	RunE: runSelftest,
}

func runSelftest(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	e, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	printSelftest(cmd.OutOrStdout(), e.services.Orchestrator().Retrieve(ctx, selftestQuestion))
	return nil
}

func printSelftest(w io.Writer, rep brain.Report) {
	fmt.Fprintf(w, "Mots-clés extraits : %s\n", strings.Join(rep.Keywords, ", "))
	fmt.Fprintf(w, "%d fenêtres trouvées :\n", rep.WindowCount)
	for i, win := range rep.Evidence {
		if i == selftestWindows {
			break
		}
		fmt.Fprintf(w, "Fenêtre (%s) : %s\n", win.Document, win.Text)
	}
}
