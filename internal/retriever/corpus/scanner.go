// Package corpus searches the plain-text knowledge base for keyword matches
// and cuts an evidence window around each one.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"toacrd.app/oracle/common/metrics"
	"toacrd.app/oracle/internal/model"
)

const (
	DefaultRadius = 200
	fileExt       = ".txt"
	matchTimeout  = 5 * time.Second
)

// SynonymSource expands keywords into the extra terms to search for.
type SynonymSource interface {
	ExpandAll(ctx context.Context, keywords []string) model.SynonymSet
}

type Scanner struct {
	dir      string
	radius   int
	synonyms SynonymSource
	logger   *slog.Logger
}

func NewScanner(dir string, radius int, synonyms SynonymSource, logger *slog.Logger) *Scanner {
	if radius < 0 {
		radius = DefaultRadius
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{dir: dir, radius: radius, synonyms: synonyms, logger: logger}
}

func (s *Scanner) Dir() string { return s.dir }

// Scan searches every .txt file directly inside the corpus directory. For each
// keyword it matches the keyword or any of its synonyms as a whole word,
// case-insensitively, and emits one window of radius characters on each side
// of every match. Keywords are applied independently, so a passage matching
// two keywords yields two windows and two hits.
//
// Unreadable files are logged and skipped. A missing directory gives an
// empty result.
func (s *Scanner) Scan(ctx context.Context, keywords model.KeywordSet) model.ScanResult {
	result := model.ScanResult{Usage: model.UsageCounts{}, Synonyms: model.SynonymSet{}}
	if len(keywords) == 0 {
		return result
	}

	terms := keywords.Sorted()
	if s.synonyms != nil {
		result.Synonyms = s.synonyms.ExpandAll(ctx, terms)
	}

	patterns := make([]*regexp2.Regexp, 0, len(terms))
	for _, kw := range terms {
		re, err := compile(append([]string{kw}, result.Synonyms[kw]...))
		if err != nil {
			s.logger.WarnContext(ctx, "skipping keyword with invalid pattern", "keyword", kw, "error", err)
			continue
		}
		patterns = append(patterns, re)
	}

	files, err := s.listFiles()
	if err != nil {
		s.logger.WarnContext(ctx, "corpus directory unavailable", "dir", s.dir, "error", err)
		metrics.RecordSkippedFile("missing_dir")
		return result
	}

	for _, name := range files {
		if ctx.Err() != nil {
			s.logger.WarnContext(ctx, "corpus scan interrupted", "error", ctx.Err())
			break
		}

		content, err := s.readFile(name)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping corpus file", "file", name, "error", err)
			metrics.RecordSkippedFile("unreadable")
			continue
		}

		windows, err := s.scanDocument(name, content, patterns)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping corpus file", "file", name, "error", err)
			metrics.RecordSkippedFile("pattern")
			continue
		}
		if len(windows) > 0 {
			result.Windows = append(result.Windows, windows...)
			result.Usage[name] += len(windows)
		}
	}

	return result
}

// listFiles returns the names of the regular .txt files of the corpus
// directory, sorted. Subdirectories are not descended into.
func (s *Scanner) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		if e.Type()&fs.ModeSymlink == 0 && !e.Type().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

var errNotUTF8 = errors.New("file is not valid UTF-8")

func (s *Scanner) readFile(name string) ([]rune, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, errNotUTF8
	}
	return []rune(string(data)), nil
}

// scanDocument applies every keyword pattern to one document. The file's
// windows are returned only if every pattern ran to completion.
func (s *Scanner) scanDocument(name string, content []rune, patterns []*regexp2.Regexp) ([]model.EvidenceWindow, error) {
	var windows []model.EvidenceWindow
	for _, re := range patterns {
		m, err := re.FindRunesMatch(content)
		for ; m != nil && err == nil; m, err = re.FindNextMatch(m) {
			start := max(0, m.Index-s.radius)
			end := min(len(content), m.Index+m.Length+s.radius)
			windows = append(windows, model.EvidenceWindow{
				Document: name,
				Text:     string(content[start:end]),
				Start:    start,
				End:      end,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", re.String(), err)
		}
	}
	return windows, nil
}

// compile builds one case-insensitive whole-word alternation over terms.
// Longer terms are tried first so a multi-word synonym wins over its prefix.
func compile(terms []string) (*regexp2.Regexp, error) {
	seen := map[string]struct{}{}
	var alts []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		alts = append(alts, t)
	}
	if len(alts) == 0 {
		return nil, errors.New("no search terms")
	}

	sort.SliceStable(alts, func(i, j int) bool {
		return utf8.RuneCountInString(alts[i]) > utf8.RuneCountInString(alts[j])
	})
	for i, t := range alts {
		alts[i] = regexp2.Escape(t)
	}

	re, err := regexp2.Compile(`\b(?:`+strings.Join(alts, "|")+`)\b`, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}
