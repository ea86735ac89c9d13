package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"toacrd.app/oracle/core/db"
)

type Config struct {
	OTel       OTelConfig
	Corpus     CorpusConfig
	Lexicon    LexiconConfig
	Annotator  AnnotatorConfig
	Completion CompletionConfig
	History    HistoryConfig
	Pipeline   PipelineConfig
	DB         db.Config
	Env        string
	Port       string
	LogLevel   string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type CorpusConfig struct {
	Dir          string
	WindowRadius int // characters kept on each side of a match
	EvidenceCap  int // windows passed to the prompt
}

type LexiconConfig struct {
	Path          string // WordNet-style thesaurus export (YAML); empty = no synonyms
	StopTermsPath string // optional override of the embedded stop-term list
	Language      string // synset language code, e.g. "fra"
	Watch         bool   // reload the thesaurus when the file changes
}

type AnnotatorConfig struct {
	Mode string // "llm" or "heuristic"
}

type CompletionConfig struct {
	Provider             string // "openai" or "anthropic"
	APIKey               string
	BaseURL              string
	Model                string
	MaxTokens            int
	Timeout              time.Duration // per completion call
	MaxAttempts          int
	RatePerMinute        int // 0 = unlimited
	ReformulationEnabled bool
}

type HistoryConfig struct {
	Backend   string // "memory" or "redis"
	MaxTurns  int
	KeyPrefix string
}

type PipelineConfig struct {
	RedisURL        string
	QuestionStream  string
	AnswerStream    string
	RedisGroup      string
	RedisDLQStream  string
	RedisConsumer   string
	TraceHeaderName string
}

const (
	AnnotatorModeLLM       = "llm"
	AnnotatorModeHeuristic = "heuristic"

	HistoryBackendMemory = "memory"
	HistoryBackendRedis  = "redis"
)

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
	ServiceTypeCLI    ServiceType = "cli"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the HTTP server
//   - .env.worker for the stream worker
//   - .env.cli for the oracle command
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("ORACLE_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:      getEnv("ORACLE_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "oracle"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Corpus: CorpusConfig{
			Dir:          getEnv("CORPUS_DIR", "toacrd/TXT"),
			WindowRadius: getEnvInt("CORPUS_WINDOW_RADIUS", 200),
			EvidenceCap:  getEnvInt("EVIDENCE_CAP", 5),
		},
		Lexicon: LexiconConfig{
			Path:          getEnv("LEXICON_PATH", ""),
			StopTermsPath: getEnv("STOP_TERMS_PATH", ""),
			Language:      getEnv("LEXICON_LANGUAGE", "fra"),
			Watch:         getEnvBool("LEXICON_WATCH", false),
		},
		Annotator: AnnotatorConfig{
			Mode: getEnv("ANNOTATOR_MODE", AnnotatorModeHeuristic),
		},
		Completion: CompletionConfig{
			Provider:             getEnv("COMPLETION_PROVIDER", "openai"),
			APIKey:               getEnvFirst("COMPLETION_API_KEY", "OPENAI_TOKEN"),
			BaseURL:              getEnv("COMPLETION_BASE_URL", ""),
			Model:                getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
			MaxTokens:            getEnvInt("COMPLETION_MAX_TOKENS", 1024),
			Timeout:              getEnvDuration("COMPLETION_TIMEOUT", 60*time.Second),
			MaxAttempts:          getEnvInt("COMPLETION_MAX_ATTEMPTS", 3),
			RatePerMinute:        getEnvInt("COMPLETION_RATE_PER_MINUTE", 0),
			ReformulationEnabled: getEnvBool("REFORMULATION_ENABLED", true),
		},
		History: HistoryConfig{
			Backend:   getEnv("HISTORY_BACKEND", HistoryBackendMemory),
			MaxTurns:  getEnvInt("HISTORY_MAX_TURNS", 20),
			KeyPrefix: getEnv("HISTORY_KEY_PREFIX", "oracle:history:"),
		},
		Pipeline: PipelineConfig{
			RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
			QuestionStream:  getEnv("REDIS_QUESTION_STREAM", "oracle_questions"),
			AnswerStream:    getEnv("REDIS_ANSWER_STREAM", "oracle_answers"),
			RedisGroup:      getEnv("REDIS_CONSUMER_GROUP", "oracle_group"),
			RedisDLQStream:  getEnv("REDIS_DLQ_STREAM", "oracle_questions_dlq"),
			RedisConsumer:   getEnv("REDIS_CONSUMER_NAME", "oracle-worker"),
			TraceHeaderName: getEnv("TRACE_HEADER_NAME", "X-Trace-Id"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings every service needs.
func (c Config) Validate() error {
	if !c.Completion.Enabled() {
		return fmt.Errorf("COMPLETION_API_KEY (or OPENAI_TOKEN) is required and COMPLETION_PROVIDER must be openai or anthropic")
	}
	if c.Corpus.Dir == "" {
		return fmt.Errorf("CORPUS_DIR is required")
	}
	if c.Corpus.WindowRadius < 0 {
		return fmt.Errorf("CORPUS_WINDOW_RADIUS must be >= 0, got %d", c.Corpus.WindowRadius)
	}
	if c.Corpus.EvidenceCap <= 0 {
		return fmt.Errorf("EVIDENCE_CAP must be > 0, got %d", c.Corpus.EvidenceCap)
	}
	if c.History.MaxTurns <= 0 {
		return fmt.Errorf("HISTORY_MAX_TURNS must be > 0, got %d", c.History.MaxTurns)
	}
	switch c.History.Backend {
	case HistoryBackendMemory, HistoryBackendRedis:
	default:
		return fmt.Errorf("unsupported HISTORY_BACKEND: %s", c.History.Backend)
	}
	switch c.Annotator.Mode {
	case AnnotatorModeLLM, AnnotatorModeHeuristic:
	default:
		return fmt.Errorf("unsupported ANNOTATOR_MODE: %s", c.Annotator.Mode)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c CompletionConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c HistoryConfig) UsesRedis() bool {
	return c.Backend == HistoryBackendRedis
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvFirst returns the first non-empty value among keys. OPENAI_TOKEN is
// the variable name older bot deployments used for the API key.
func getEnvFirst(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
