// Package keywords pulls the content words of a question.
package keywords

import (
	"context"
	"log/slog"

	"toacrd.app/oracle/internal/annotator"
	"toacrd.app/oracle/internal/model"
)

// Extractor returns the lowercase nouns, verbs and adjectives of a question.
type Extractor interface {
	Extract(ctx context.Context, text string) model.KeywordSet
}

type extractor struct {
	annotator annotator.Annotator
	logger    *slog.Logger
}

func New(a annotator.Annotator, logger *slog.Logger) Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &extractor{annotator: a, logger: logger}
}

// Extract never fails: an annotation error or a question without content
// words yields an empty set.
func (e *extractor) Extract(ctx context.Context, text string) model.KeywordSet {
	set := model.NewKeywordSet()
	if text == "" {
		return set
	}

	tokens, err := e.annotator.Annotate(ctx, text)
	if err != nil {
		e.logger.WarnContext(ctx, "annotation failed, continuing without keywords", "error", err)
		return set
	}

	for _, t := range tokens {
		if t.POS.IsContent() {
			set.Add(t.Surface)
		}
	}

	if len(set) == 0 {
		e.logger.DebugContext(ctx, "no content words in question", "token_count", len(tokens))
	}
	return set
}
