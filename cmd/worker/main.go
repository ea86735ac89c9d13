package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"toacrd.app/oracle/common/id"
	"toacrd.app/oracle/common/logger"
	"toacrd.app/oracle/common/otel"
	"toacrd.app/oracle/core/config"
	"toacrd.app/oracle/core/db"
	"toacrd.app/oracle/internal/queue"
	"toacrd.app/oracle/internal/service"
	"toacrd.app/oracle/internal/worker"
)

const maxAttempts = 3

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "oracle worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node ID than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	deps := service.Deps{}

	if cfg.DB.Enabled() {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		deps.DB = database
		slog.InfoContext(ctx, "database connected, turn archive enabled")
	}

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	deps.Redis = redisClient
	slog.InfoContext(ctx, "redis connected",
		"question_stream", cfg.Pipeline.QuestionStream,
		"answer_stream", cfg.Pipeline.AnswerStream)

	services, err := service.NewServices(ctx, cfg, deps)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build question pipeline", "error", err)
		os.Exit(1)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	if err := services.WatchLexicon(runCtx); err != nil {
		slog.WarnContext(ctx, "thesaurus hot reload disabled", "error", err)
	}

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.QuestionStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1,
		Block:        5 * time.Second,
		MaxAttempts:  maxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.QuestionStream, slog.Default())
	defer producer.Close()

	w := worker.New(consumer, services.Orchestrator(), producer, worker.Config{
		MaxAttempts:  maxAttempts,
		AnswerStream: cfg.Pipeline.AnswerStream,
	})

	// A question's two completion calls can take a while; only claim entries
	// idle for longer than that.
	minIdle := 2*cfg.Completion.Timeout*time.Duration(max(cfg.Completion.MaxAttempts, 1)) + time.Minute
	reclaimer := worker.NewReclaimer(consumer, w, worker.ReclaimerConfig{
		MinIdle:   minIdle,
		Interval:  time.Minute,
		BatchSize: 10,
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(runCtx)
	}()
	go func() {
		reclaimer.Run(runCtx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer first, it is quick; the worker may be mid-question.
	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
 ██████╗ ██████╗  █████╗  ██████╗██╗     ███████╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
██╔═══██╗██╔══██╗██╔══██╗██╔════╝██║     ██╔════╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██║   ██║██████╔╝███████║██║     ██║     █████╗      ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██║   ██║██╔══██╗██╔══██║██║     ██║     ██╔══╝      ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
╚██████╔╝██║  ██║██║  ██║╚██████╗███████╗███████╗    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
 ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚══════╝╚══════╝     ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
