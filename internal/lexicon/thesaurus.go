package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Thesaurus is a Database backed by a YAML export of a wordnet:
//
//	fra:
//	  - id: apprentissage.n.01
//	    lemmas: [apprentissage, formation, instruction]
//
// Multi-word lemmas may use underscores (wordnet style); they are matched as spaces.
type Thesaurus struct {
	path string

	mu    sync.RWMutex
	index map[string]map[string][]Synset // lang -> lowercase lemma -> synsets
}

// NewThesaurus returns an empty thesaurus; every lookup yields no synsets.
func NewThesaurus() *Thesaurus {
	return &Thesaurus{index: map[string]map[string][]Synset{}}
}

// LoadThesaurus reads the YAML export at path.
func LoadThesaurus(path string) (*Thesaurus, error) {
	t := &Thesaurus{path: path}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseThesaurus builds a thesaurus from YAML bytes.
func ParseThesaurus(data []byte) (*Thesaurus, error) {
	index, err := parseIndex(data)
	if err != nil {
		return nil, err
	}
	return &Thesaurus{index: index}, nil
}

func (t *Thesaurus) Synsets(ctx context.Context, term, lang string) ([]Synset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.index == nil {
		return nil, ErrNotLoaded
	}
	return t.index[lang][normalize(term)], nil
}

// Reload re-reads the file the thesaurus was loaded from. On error the
// previous index is kept.
func (t *Thesaurus) Reload() error {
	if t.path == "" {
		return nil
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read thesaurus %s: %w", t.path, err)
	}
	index, err := parseIndex(data)
	if err != nil {
		return fmt.Errorf("parse thesaurus %s: %w", t.path, err)
	}

	t.mu.Lock()
	t.index = index
	t.mu.Unlock()

	slog.Info("thesaurus loaded", "path", t.path, "languages", len(index), "terms", t.Len())
	return nil
}

// Len is the number of distinct lemmas across languages.
func (t *Thesaurus) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, terms := range t.index {
		n += len(terms)
	}
	return n
}

// Watch reloads the thesaurus whenever its file is written or replaced,
// until ctx is done. The parent directory is watched so editors that save
// through a rename are picked up.
func (t *Thesaurus) Watch(ctx context.Context) error {
	if t.path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(t.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(t.path), err)
	}

	target := filepath.Clean(t.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := t.Reload(); err != nil {
					slog.WarnContext(ctx, "thesaurus reload failed, keeping previous version", "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "thesaurus watcher error", "error", err)
			}
		}
	}()

	return nil
}

func parseIndex(data []byte) (map[string]map[string][]Synset, error) {
	var raw map[string][]Synset
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	index := make(map[string]map[string][]Synset, len(raw))
	for lang, synsets := range raw {
		terms := map[string][]Synset{}
		for _, s := range synsets {
			lemmas := make([]string, 0, len(s.Lemmas))
			for _, l := range s.Lemmas {
				if l = strings.ReplaceAll(strings.TrimSpace(l), "_", " "); l != "" {
					lemmas = append(lemmas, l)
				}
			}
			s.Lemmas = lemmas
			for _, l := range lemmas {
				key := normalize(l)
				terms[key] = append(terms[key], s)
			}
		}
		index[lang] = terms
	}
	return index, nil
}

func normalize(term string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(term), "_", " "))
}
