package lexicon

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"toacrd.app/oracle/internal/model"
)

const maxConcurrentLookups = 8

// Expander turns a keyword into the synonyms used to widen the corpus search.
type Expander struct {
	db   Database
	stop StopTerms
	lang string
}

func NewExpander(db Database, stop StopTerms, lang string) *Expander {
	if stop == nil {
		stop = StopTerms{}
	}
	if lang == "" {
		lang = "fra"
	}
	return &Expander{db: db, stop: stop, lang: lang}
}

// Expand returns the union of the lemmas of every synset of keyword, sorted and
// without duplicates. Stop terms return nothing without touching the database.
// A lookup failure is logged and yields no synonyms.
func (e *Expander) Expand(ctx context.Context, keyword string) []string {
	if e.stop.Contains(keyword) || e.db == nil {
		return nil
	}

	synsets, err := e.db.Synsets(ctx, keyword, e.lang)
	if err != nil {
		slog.WarnContext(ctx, "synonym lookup failed", "keyword", keyword, "error", err)
		return nil
	}

	seen := map[string]struct{}{}
	var out []string
	for _, s := range synsets {
		for _, lemma := range s.Lemmas {
			key := strings.ToLower(lemma)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, lemma)
		}
	}
	sort.Strings(out)
	return out
}

// ExpandAll expands every keyword concurrently. A keyword whose lookup fails
// maps to an empty list; it never aborts the others.
func (e *Expander) ExpandAll(ctx context.Context, keywords []string) model.SynonymSet {
	results := make([][]string, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, kw := range keywords {
		g.Go(func() error {
			results[i] = e.Expand(gctx, kw)
			return nil
		})
	}
	_ = g.Wait()

	out := make(model.SynonymSet, len(keywords))
	for i, kw := range keywords {
		out[kw] = results[i]
	}
	return out
}
