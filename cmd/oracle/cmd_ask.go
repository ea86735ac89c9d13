package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"toacrd.app/oracle/internal/brain"
	"toacrd.app/oracle/internal/queue"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question",
	Long: `Answer one question and print the progress lines followed by the answer.

With --enqueue the question is added to the question stream and the worker
publishes the answer on the answer stream.`,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	e, err := setup(ctx, enqueue)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()

	if enqueue {
		producer := queue.NewRedisProducer(e.redis, e.cfg.Pipeline.QuestionStream, slog.Default())
		msgID, err := producer.Enqueue(ctx, queue.Question{UserID: askUser, Question: question})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Question en file : %s (réponse sur %s)\n", msgID, e.cfg.Pipeline.AnswerStream)
		return nil
	}

	printReport(out, e.services.Orchestrator().Ask(ctx, askUser, question))
	return nil
}

func printReport(w io.Writer, rep brain.Report) {
	fmt.Fprint(w, rep.Summary())
	fmt.Fprintf(w, "Réponse : %s\n", rep.Answer)
}
