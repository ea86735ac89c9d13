package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed stop_terms.yaml
var defaultStopTermsYAML []byte

// StopTerms is the set of terms that never get synonyms, whatever their language.
type StopTerms map[string]struct{}

// DefaultStopTerms returns the built-in French and English list.
func DefaultStopTerms() StopTerms {
	st, err := ParseStopTerms(defaultStopTermsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded stop_terms.yaml: %v", err))
	}
	return st
}

// LoadStopTerms reads a stop-term file with the same layout as the embedded
// default (language -> list). An empty path returns the default.
func LoadStopTerms(path string) (StopTerms, error) {
	if path == "" {
		return DefaultStopTerms(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stop terms %s: %w", path, err)
	}
	return ParseStopTerms(data)
}

func ParseStopTerms(data []byte) (StopTerms, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse stop terms: %w", err)
	}
	st := StopTerms{}
	for _, terms := range raw {
		for _, t := range terms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				st[t] = struct{}{}
			}
		}
	}
	return st, nil
}

func (s StopTerms) Contains(term string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(term))]
	return ok
}
