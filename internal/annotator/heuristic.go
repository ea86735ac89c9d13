package annotator

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"toacrd.app/oracle/internal/model"
)

//go:embed closed_class.yaml
var closedClassYAML []byte

var closedClassOrder = []string{"AUX", "DET", "PRON", "ADP", "CCONJ", "SCONJ", "ADV"}

// Heuristic tags text offline: closed-class words come from a fixed list and
// everything else is guessed from its suffix. Nouns and verbs are not reliably
// told apart, which does not matter to keyword extraction since both count.
type Heuristic struct {
	closed map[string]model.PartOfSpeech
}

func NewHeuristic() (*Heuristic, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(closedClassYAML, &raw); err != nil {
		return nil, fmt.Errorf("parse closed_class.yaml: %w", err)
	}

	closed := map[string]model.PartOfSpeech{}
	// earlier classes win for words listed twice ("a", "en", "or")
	for _, pos := range closedClassOrder {
		for _, w := range raw[pos] {
			if _, ok := closed[w]; !ok {
				closed[w] = model.PartOfSpeech(pos)
			}
		}
	}
	return &Heuristic{closed: closed}, nil
}

func (h *Heuristic) Annotate(ctx context.Context, text string) ([]model.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := tokenize(text)
	tokens := make([]model.Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, model.Token{Surface: w, POS: h.tag(w)})
	}
	return tokens, nil
}

func (h *Heuristic) tag(word string) model.PartOfSpeech {
	lower := strings.ToLower(word)
	if pos, ok := h.closed[lower]; ok {
		return pos
	}

	first := []rune(word)[0]
	switch {
	case first == '-' && len(word) > 1:
		return model.POSPronoun
	case unicode.IsPunct(first) || unicode.IsSymbol(first):
		return model.POSPunct
	case unicode.IsDigit(first):
		return model.POSNumeral
	case strings.HasSuffix(lower, "ment") && len([]rune(lower)) > 6:
		return model.POSAdverb
	case strings.HasSuffix(lower, "er") || strings.HasSuffix(lower, "ir"):
		return model.POSVerb
	default:
		return model.POSNoun
	}
}

// tokenize splits text into words and punctuation marks. Elided articles and
// pronouns keep their apostrophe ("l'", "qu'") as a token of their own.
func tokenize(text string) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, splitClitics(string(cur))...)
			cur = cur[:0]
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || (r == '-' && len(cur) > 0):
			cur = append(cur, r)
		case r == '\'' || r == '’':
			if len(cur) > 0 {
				cur = append(cur, '\'')
			}
			flush()
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			out = append(out, string(r))
		}
	}
	flush()
	return out
}

var clitics = map[string]bool{
	"t": true, "je": true, "tu": true, "il": true, "elle": true, "on": true, "nous": true, "vous": true,
	"ils": true, "elles": true, "ce": true, "moi": true, "toi": true, "lui": true, "le": true, "la": true,
	"les": true, "y": true, "en": true, "leur": true,
}

// splitClitics separates inverted subject pronouns from their verb:
// "mange-t-il" becomes "mange", "-t", "-il". Other hyphenated words are kept.
func splitClitics(word string) []string {
	parts := strings.Split(word, "-")
	if len(parts) < 2 || parts[0] == "" {
		return []string{word}
	}
	for _, p := range parts[1:] {
		if !clitics[strings.ToLower(p)] {
			return []string{word}
		}
	}
	out := []string{parts[0]}
	for _, p := range parts[1:] {
		out = append(out, "-"+p)
	}
	return out
}
