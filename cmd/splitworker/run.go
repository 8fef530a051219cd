package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wjixiang/aikb/internal/config"
	"github.com/wjixiang/aikb/internal/queue"
	"github.com/wjixiang/aikb/internal/source"
	"github.com/wjixiang/aikb/internal/store"
	"github.com/wjixiang/aikb/internal/worker"
)

// runServe starts the worker daemon: connect to the broker, consume the
// split-request queue, and process deliveries until interrupted.
func runServe(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file (optional)")
	healthInterval := fs.Duration("health-interval", 5*time.Minute, "Storage health check interval (0 disables)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: splitworker run [options]

Consume PDF split requests from the broker and process them: download the
source document, split it into parts, upload the parts to object storage,
and publish one conversion request per part.

Configuration comes from defaults, then the config file, then environment
variables (RABBITMQ_HOSTNAME, PDF_BUCKET_URL, ... highest precedence).

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, code := loadConfig(*configPath)
	if code != ExitSuccess {
		return code
	}

	log := newLogger(cfg.LogLevel)
	workerID := workerID()
	log = log.With().Str("worker_id", workerID).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("received interrupt, shutting down")
		cancel()
	}()

	// Broker
	client := queue.NewClient(queue.Config{URL: cfg.Broker.AMQPURL()})
	if err := client.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("broker connection failed")
		return ExitBrokerError
	}
	defer client.Close()
	log.Info().Str("host", cfg.Broker.Host).Msg("connected to broker")

	// Storage
	st, err := store.Open(ctx, store.Options{
		BucketURL:     cfg.Storage.BucketURL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("storage open failed")
		return ExitStorageError
	}
	defer st.Close()
	if st.Standin() {
		log.Warn().Msg("no bucket configured, uploads go to an in-memory stand-in")
	}

	// Source downloads
	srcOpts := source.DefaultOptions()
	srcOpts.ReadTimeout = cfg.Worker.DownloadTimeout
	srcOpts.RetryAttempts = cfg.Worker.DownloadRetries
	src := source.NewClient(srcOpts)

	w := worker.New(client, src, st, worker.Options{
		Queues:           client.Queues(),
		DefaultSplitSize: cfg.Split.DefaultSize,
		MinSplitSize:     cfg.Split.MinSize,
		MaxSplitSize:     cfg.Split.MaxSize,
		ConcurrentParts:  cfg.Worker.ConcurrentParts,
		MaxRetries:       cfg.Worker.MaxRetries,
		TempDir:          cfg.Worker.TempDir,
		WorkerID:         workerID,
		Logger:           log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("queue", client.Queues().SplitRequest).Msg("consuming split requests")
		return client.Consume(gctx, client.Queues().SplitRequest, func(ctx context.Context, d *queue.Delivery) {
			w.Handle(ctx, d)
		})
	})

	if *healthInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(*healthInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if !st.HealthCheck(gctx) {
						log.Warn().Msg("storage health check failed")
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("worker stopped")
		return ExitBrokerError
	}

	log.Info().Msg("worker stopped")
	return ExitSuccess
}

// loadConfig layers defaults, the optional config file, and environment
// variables, then validates the result.
func loadConfig(path string) (config.Config, int) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return cfg, ExitConfigError
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", err)
		return cfg, ExitConfigError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return cfg, ExitConfigError
	}
	return cfg, ExitSuccess
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// workerID identifies this process in logs and is stable for its lifetime.
func workerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
