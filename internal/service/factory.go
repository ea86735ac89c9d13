package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"toacrd.app/oracle/common/llm"
	"toacrd.app/oracle/core/config"
	"toacrd.app/oracle/core/db"
	"toacrd.app/oracle/internal/annotator"
	"toacrd.app/oracle/internal/brain"
	"toacrd.app/oracle/internal/lexicon"
	"toacrd.app/oracle/internal/model"
	"toacrd.app/oracle/internal/retriever/corpus"
	"toacrd.app/oracle/internal/retriever/keywords"
	"toacrd.app/oracle/internal/store"
)

// ErrArchiveDisabled is returned when archived turns are requested without a
// configured database.
var ErrArchiveDisabled = errors.New("turn archive is disabled, set DATABASE_URL")

// Deps are the connections opened by the binary. Both are optional: Redis is
// only needed for the redis history backend, the database only for the turn
// archive.
type Deps struct {
	Redis *redis.Client
	DB    *db.DB
}

// Services holds the assembled question answering pipeline.
type Services struct {
	cfg          config.Config
	completion   llm.Client
	thesaurus    *lexicon.Thesaurus
	history      store.ConversationStore
	orchestrator *brain.Orchestrator
}

func NewServices(ctx context.Context, cfg config.Config, deps Deps) (*Services, error) {
	completion, err := newCompletionClient(cfg.Completion)
	if err != nil {
		return nil, err
	}

	ann, err := newAnnotator(cfg.Annotator, completion)
	if err != nil {
		return nil, err
	}

	thesaurus, err := newThesaurus(cfg.Lexicon)
	if err != nil {
		return nil, err
	}

	stop := lexicon.DefaultStopTerms()
	if cfg.Lexicon.StopTermsPath != "" {
		if stop, err = lexicon.LoadStopTerms(cfg.Lexicon.StopTermsPath); err != nil {
			return nil, err
		}
	}

	history, err := newHistory(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	expander := lexicon.NewExpander(thesaurus, stop, cfg.Lexicon.Language)
	scanner := corpus.NewScanner(cfg.Corpus.Dir, cfg.Corpus.WindowRadius, expander, logger)

	orchestrator := brain.NewOrchestrator(
		brain.OrchestratorConfig{EvidenceCap: cfg.Corpus.EvidenceCap},
		keywords.New(ann, logger),
		scanner,
		brain.NewAnswerer(completion, cfg.Completion.ReformulationEnabled),
		history,
	)

	slog.InfoContext(ctx, "question pipeline ready",
		"provider", cfg.Completion.Provider,
		"model", completion.Model(),
		"annotator", cfg.Annotator.Mode,
		"history_backend", cfg.History.Backend,
		"corpus_dir", cfg.Corpus.Dir,
		"synsets", thesaurus.Len())

	return &Services{
		cfg:          cfg,
		completion:   completion,
		thesaurus:    thesaurus,
		history:      history,
		orchestrator: orchestrator,
	}, nil
}

func (s *Services) Orchestrator() *brain.Orchestrator {
	return s.orchestrator
}

func (s *Services) History() store.ConversationStore {
	return s.history
}

// ArchivedHistory reads up to limit of the user's turns from the database
// archive, which keeps more than the bounded history.
func (s *Services) ArchivedHistory(ctx context.Context, userID string, limit int) ([]model.Turn, error) {
	archive, ok := s.history.(*store.ArchivedStore)
	if !ok {
		return nil, ErrArchiveDisabled
	}
	return archive.Archived(ctx, userID, limit)
}

// WatchLexicon reloads the thesaurus on change when enabled in config.
func (s *Services) WatchLexicon(ctx context.Context) error {
	if !s.cfg.Lexicon.Watch {
		return nil
	}
	return s.thesaurus.Watch(ctx)
}

func newCompletionClient(cfg config.CompletionConfig) (llm.Client, error) {
	client, err := llm.New(llm.Config{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}

	return llm.NewResilient(client, llm.ResilienceConfig{
		Timeout:       cfg.Timeout,
		MaxAttempts:   cfg.MaxAttempts,
		RatePerMinute: cfg.RatePerMinute,
		BaseBackoff:   time.Second,
		Provider:      cfg.Provider,
	}), nil
}

func newAnnotator(cfg config.AnnotatorConfig, completion llm.Client) (annotator.Annotator, error) {
	if cfg.Mode == config.AnnotatorModeLLM {
		return annotator.NewLLM(completion), nil
	}
	h, err := annotator.NewHeuristic()
	if err != nil {
		return nil, fmt.Errorf("creating heuristic annotator: %w", err)
	}
	return h, nil
}

func newThesaurus(cfg config.LexiconConfig) (*lexicon.Thesaurus, error) {
	if cfg.Path == "" {
		slog.Warn("LEXICON_PATH is empty, lexical database has no synsets and synonym expansion is off")
		return lexicon.NewThesaurus(), nil
	}
	t, err := lexicon.LoadThesaurus(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("loading thesaurus: %w", err)
	}
	return t, nil
}

func newHistory(ctx context.Context, cfg config.Config, deps Deps) (store.ConversationStore, error) {
	var history store.ConversationStore
	if cfg.History.UsesRedis() {
		if deps.Redis == nil {
			return nil, fmt.Errorf("history backend %q needs a redis connection", cfg.History.Backend)
		}
		history = store.NewRedisConversationStore(deps.Redis, cfg.History.KeyPrefix, cfg.History.MaxTurns)
	} else {
		history = store.NewMemoryConversationStore(cfg.History.MaxTurns)
	}

	if deps.DB == nil {
		return history, nil
	}
	if err := deps.DB.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store.NewArchivedStore(history, deps.DB.Pool(), slog.Default()), nil
}
