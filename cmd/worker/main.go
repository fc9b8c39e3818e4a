package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basegraph.app/gapengine/common/id"
	"basegraph.app/gapengine/common/logger"
	"basegraph.app/gapengine/common/otel"
	"basegraph.app/gapengine/core/config"
	"basegraph.app/gapengine/core/db"
	"basegraph.app/gapengine/internal/metrics"
	"basegraph.app/gapengine/internal/queue"
	"basegraph.app/gapengine/internal/service"
	"basegraph.app/gapengine/internal/store"
	"basegraph.app/gapengine/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)
	logger.Setup(cfg)

	slog.InfoContext(ctx, "gapengine worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer,
		"pool_size", cfg.Analysis.WorkerPoolSize,
		"scorer_timeout", cfg.Analysis.ScorerTimeout)

	// Server and worker must use distinct node ids
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	engine, err := service.NewEngine(cfg.Analysis, m)
	if err != nil {
		slog.ErrorContext(ctx, "invalid analysis configuration", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer,
		DLQStream: cfg.Pipeline.RedisDLQStream,
		Block:     2 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	// Jobs are only ever submitted by the api, so the worker has no producer.
	stores := store.NewStores(database.Queries())
	svc := service.NewGapAnalysisService(service.GapAnalysisDeps{
		Chapters:    stores.Chapters(),
		Jobs:        stores.Jobs(),
		Results:     stores.Results(),
		TxRunner:    service.NewTxRunner(database),
		Runner:      engine.Runner,
		Aggregator:  engine.Aggregator,
		Recommender: engine.Recommender,
		StalePolicy: cfg.Analysis.StaleResultPolicy,
		Recorder:    m,
	})

	pool := worker.New(consumer, svc, worker.Config{
		PoolSize: cfg.Analysis.WorkerPoolSize,
	}, worker.WithObserver(m))

	reclaimer := worker.NewReclaimer(consumer, svc, worker.ReclaimerConfig{
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, m)

	var metricsServer *http.Server
	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.InfoContext(ctx, "metrics server starting", "port", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.ErrorContext(ctx, "metrics server error", "error", err)
			}
		}()
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- pool.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer first (quick), then the pool which may be mid-job.
	reclaimer.Stop()

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()
	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded, abandoning in-flight jobs to the reclaimer")
	case <-stopped:
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "metrics server shutdown error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
  __ _  __ _ _ __   ___ _ __   __ _(_)_ __   ___   __      _____  _ __| | _____ _ __
 / _' |/ _' | '_ \ / _ \ '_ \ / _' | | '_ \ / _ \  \ \ /\ / / _ \| '__| |/ / _ \ '__|
| (_| | (_| | |_) |  __/ | | | (_| | | | | |  __/   \ V  V / (_) | |  |   <  __/ |
 \__, |\__,_| .__/ \___|_| |_|\__, |_|_| |_|\___|    \_/\_/ \___/|_|  |_|\_\___|_|
 |___/      |_|               |___/
`
