// cmd/pitch-scorer/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pitch-scorer/internal/api"
	"pitch-scorer/internal/common/aws"
	"pitch-scorer/internal/common/config"
	"pitch-scorer/internal/common/database"
	"pitch-scorer/internal/common/llm"
	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/observability"
	"pitch-scorer/internal/pipeline"
	"pitch-scorer/internal/records"
	"pitch-scorer/internal/store"
	"pitch-scorer/internal/store/memory"
	"pitch-scorer/internal/store/pgstore"
	"pitch-scorer/internal/store/redisstore"
	"pitch-scorer/internal/store/s3store"

	extractdecktext "pitch-scorer/internal/workers/deck/extract-deck-text"
	summarizedeck "pitch-scorer/internal/workers/deck/summarize-deck"
	validateintake "pitch-scorer/internal/workers/intake/validate-intake"
	sendnotification "pitch-scorer/internal/workers/notification/send-notification"
	scoresubmission "pitch-scorer/internal/workers/scoring/score-submission"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pitch-scorer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output).
		WithFields(map[string]interface{}{"service": cfg.App.Name, "version": cfg.App.Version})
	log.Info("Starting pitch scorer...", map[string]interface{}{"environment": cfg.App.Environment})

	obs, err := observability.New(cfg.App.Name, nil)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// --- Record store ---
	inner, ready, closeStore, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeStore()
	blobs := store.NewInstrumented(inner, cfg.Storage.Backend, config.GetDuration(cfg.Storage.Timeout), log)

	// --- Oracle ---
	genaiCfg := cfg.APIs.GenAI
	oracle, err := llm.NewGeminiClient(ctx, llm.Config{
		APIKey:      genaiCfg.APIKey,
		BaseURL:     genaiCfg.BaseURL,
		Model:       genaiCfg.Model,
		Temperature: float32(genaiCfg.Temperature),
		Timeout:     config.GetDuration(genaiCfg.Timeout),
	}, log)
	if err != nil {
		return fmt.Errorf("genai client: %w", err)
	}

	// --- Workers ---
	scoreCfg := scoresubmission.LoadConfig()
	scoreCfg.PassThreshold = cfg.Scoring.PassThreshold
	scoreCfg.StrictPass = cfg.Scoring.StrictPass

	notifier, err := newNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		return err
	}

	queue := pipeline.NewTaskQueue(pipeline.QueueConfig{
		Workers:  cfg.Queue.Workers,
		Capacity: cfg.Queue.Capacity,
		Timeout:  config.GetDuration(cfg.Queue.Timeout),
	}, log)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Store:         blobs,
		Validator:     validateintake.NewHandler(validateintake.LoadConfig(), log),
		Extractor:     extractdecktext.NewHandler(extractdecktext.LoadConfig(), log),
		Summarizer:    summarizedeck.NewHandler(summarizedeck.LoadConfig(), oracle, log),
		Scorer:        scoresubmission.NewHandler(scoreCfg, oracle, log),
		Notifier:      notifier,
		Queue:         queue,
		Observability: obs,
		Logger:        log,
	})

	handler := api.NewHandler(orchestrator, records.NewService(blobs, log), api.Options{
		UploadField:        cfg.Upload.FieldName,
		MaxUploadBytes:     cfg.Upload.MaxBytes,
		AllowedTypes:       cfg.Upload.AllowedTypes,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Ready:              ready,
	}, log)

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:      config.GetDuration(cfg.Server.WriteTimeout),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"address": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received, draining...", map[string]interface{}{"signal": sig.String()})
	case err := <-serverErr:
		log.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", map[string]interface{}{"error": err.Error()})
	}
	if err := queue.Shutdown(shutdownCtx); err != nil {
		log.Error("Error draining notification queue", map[string]interface{}{"error": err.Error()})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing telemetry", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Pitch scorer stopped gracefully", nil)
	return nil
}

// openStore connects the configured backend. The returned ready func backs
// /ready and the close func releases the connection.
func openStore(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (store.Store, func(context.Context) error, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendMemory, "":
		log.Warn("Using in-memory record store; records are lost on restart", nil)
		return memory.New(), nil, noop, nil

	case config.BackendS3:
		client, err := aws.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("s3 client: %w", err)
		}
		log.Info("S3 record store configured", map[string]interface{}{"bucket": cfg.S3.Bucket})
		return s3store.New(client, cfg.S3.Bucket), nil, noop, nil

	case config.BackendRedis:
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			return nil, nil, noop, err
		}
		log.Info("Redis connected successfully", nil)
		return redisstore.New(rc.Client, cfg.Redis.KeyPrefix), rc.Ping, func() { _ = rc.Close() }, nil

	case config.BackendPostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return nil, nil, noop, err
		}
		s := pgstore.New(pg.DB, cfg.Postgres.Table)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, noop, err
		}
		log.Info("PostgreSQL connected successfully", nil)
		return s, pg.Ping, func() { _ = pg.Close() }, nil
	}

	return nil, nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func newNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*sendnotification.Handler, error) {
	nc := sendnotification.LoadConfig()
	nc.SlackWebhookURL = cfg.Slack.WebhookURL
	if cfg.Slack.Timeout > 0 {
		nc.Timeout = config.GetDuration(cfg.Slack.Timeout)
	}
	nc.EmailEnabled = cfg.Email.Enabled
	nc.FromEmail = cfg.Email.FromEmail
	nc.Recipients = cfg.Email.Recipients
	nc.SNSEnabled = cfg.SNS.Enabled
	nc.TopicARN = cfg.SNS.TopicARN

	var (
		sesClient sendnotification.SESService
		snsClient sendnotification.SNSService
	)
	if nc.EmailEnabled {
		c, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		sesClient = c
	}
	if nc.SNSEnabled {
		c, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		snsClient = c
	}

	return sendnotification.NewHandler(nc, nil, sesClient, snsClient, log), nil
}
