package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"toacrd.app/oracle/common/id"
	"toacrd.app/oracle/common/logger"
	"toacrd.app/oracle/core/config"
	"toacrd.app/oracle/core/db"
	"toacrd.app/oracle/internal/service"
)

var (
	askUser     string
	question    string
	enqueue     bool
	historyUser string
	archived    bool
	limit       int
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Answer questions from the TOACRD text corpus",
	Long: `oracle answers French questions using the .txt corpus as evidence.

Configuration comes from the environment (.env.cli, then .env in development).
The history and enqueue features need HISTORY_BACKEND=redis and REDIS_URL.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	askCmd.Flags().StringVarP(&askUser, "user", "u", "cli", "User the question is asked for")
	askCmd.Flags().StringVarP(&question, "question", "q", "", "Question to answer")
	askCmd.Flags().BoolVar(&enqueue, "enqueue", false, "Queue the question for the worker instead of answering here")
	_ = askCmd.MarkFlagRequired("question")

	historyCmd.Flags().StringVarP(&historyUser, "user", "u", "", "User whose history to print")
	historyCmd.Flags().BoolVar(&archived, "archived", false, "Read the database archive instead of the bounded history")
	historyCmd.Flags().IntVar(&limit, "limit", 50, "Most recent archived turns to print")
	_ = historyCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every subcommand starts from.
type env struct {
	cfg      config.Config
	redis    *redis.Client
	db       *db.DB
	services *service.Services
}

func (e *env) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
}

// setup loads configuration and builds the pipeline. Redis is connected when
// the history backend needs it or withRedis is set. The database is connected
// whenever DATABASE_URL is set so answered turns are archived.
func setup(ctx context.Context, withRedis bool) (*env, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg)

	if err := id.Init(3); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	e := &env{cfg: cfg}
	if withRedis || cfg.History.UsesRedis() {
		opts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		e.redis = redis.NewClient(opts)
		if err := e.redis.Ping(ctx).Err(); err != nil {
			e.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
	}

	if cfg.DB.Enabled() {
		if e.db, err = db.New(ctx, cfg.DB); err != nil {
			e.Close()
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
	}

	e.services, err = service.NewServices(ctx, cfg, service.Deps{Redis: e.redis, DB: e.db})
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}
