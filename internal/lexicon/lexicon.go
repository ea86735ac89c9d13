// Package lexicon expands question keywords into the surface forms used to
// search the corpus: WordNet-style synsets plus a stop-term filter.
package lexicon

import (
	"context"
	"errors"
)

var ErrNotLoaded = errors.New("lexical database not loaded")

// Synset is one sense of a term together with every lemma naming it.
type Synset struct {
	ID     string   `yaml:"id"`
	Lemmas []string `yaml:"lemmas"`
}

// Database answers synset lookups for a term in a language ("fra", "eng").
// An unknown term yields no synsets and no error.
type Database interface {
	Synsets(ctx context.Context, term, lang string) ([]Synset, error)
}
