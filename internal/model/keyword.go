package model

import (
	"sort"
	"strings"
)

// PartOfSpeech is a universal POS tag as produced by the linguistic annotator.
type PartOfSpeech string

const (
	POSNoun         PartOfSpeech = "NOUN"
	POSVerb         PartOfSpeech = "VERB"
	POSAdjective    PartOfSpeech = "ADJ"
	POSAdverb       PartOfSpeech = "ADV"
	POSPronoun      PartOfSpeech = "PRON"
	POSDeterminer   PartOfSpeech = "DET"
	POSAdposition   PartOfSpeech = "ADP"
	POSConjunction  PartOfSpeech = "CCONJ"
	POSSubordinator PartOfSpeech = "SCONJ"
	POSNumeral      PartOfSpeech = "NUM"
	POSAuxiliary    PartOfSpeech = "AUX"
	POSPunct        PartOfSpeech = "PUNCT"
	POSOther        PartOfSpeech = "X"
)

// IsContent reports whether the tag marks a content-bearing word.
func (p PartOfSpeech) IsContent() bool {
	switch p {
	case POSNoun, POSVerb, POSAdjective:
		return true
	default:
		return false
	}
}

// Token is a single annotated surface form.
type Token struct {
	Surface string       `json:"surface"`
	POS     PartOfSpeech `json:"pos"`
}

// KeywordSet is a set of lowercase keywords.
type KeywordSet map[string]struct{}

func NewKeywordSet(words ...string) KeywordSet {
	set := make(KeywordSet, len(words))
	for _, w := range words {
		set.Add(w)
	}
	return set
}

// Add lower-cases and inserts w. Blank words are ignored.
func (s KeywordSet) Add(w string) {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "" {
		return
	}
	s[w] = struct{}{}
}

func (s KeywordSet) Contains(w string) bool {
	_, ok := s[strings.ToLower(w)]
	return ok
}

// Sorted returns the keywords in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// SynonymSet maps each keyword to the surface forms found for it.
type SynonymSet map[string][]string
