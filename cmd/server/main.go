package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"

	_ "github.com/joho/godotenv/autoload"

	"github.com/leowmjw/go-walk-sync/pkg/hcl"
	"github.com/leowmjw/go-walk-sync/pkg/http"
	"github.com/leowmjw/go-walk-sync/pkg/temporal"
)

func main() {
	var (
		configPath   = flag.String("config", os.Getenv("WALKSYNC_CONFIG"), "YAML or HCL config file, or a directory of .hcl files")
		httpAddr     = flag.String("http-addr", "", "HTTP server address; defaults to the configured port")
		temporalAddr = flag.String("temporal-addr", "", "Temporal server address")
		namespace    = flag.String("namespace", "", "Temporal namespace")
		taskQueue    = flag.String("task-queue", "", "Temporal task queue")
		logLevel     = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	cfg, err := hcl.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	override(&cfg.App.LogLevel, *logLevel)
	override(&cfg.Temporal.HostPort, *temporalAddr)
	override(&cfg.Temporal.Namespace, *namespace)
	override(&cfg.Temporal.TaskQueue, *taskQueue)
	addr := cfg.App.HTTP.Address()
	override(&addr, *httpAddr)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	logger.Info("Starting walk sync service",
		"httpAddr", addr,
		"temporalAddr", cfg.Temporal.HostPort,
		"namespace", cfg.Temporal.Namespace,
		"taskQueue", cfg.Temporal.TaskQueue,
	)

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.Error("Failed to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{
		// ffmpeg and the array files are local; one session at a time per worker.
		MaxConcurrentActivityExecutionSize: 1,
	})
	temporal.Register(w, temporal.NewActivities(logger, cfg))

	server := http.NewServer(logger, temporalClient, addr, cfg.Temporal.TaskQueue)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Temporal worker", "taskQueue", cfg.Temporal.TaskQueue)
		if err := w.Start(); err != nil {
			return err
		}
		<-gCtx.Done()
		w.Stop()
		return nil
	})
	g.Go(func() error {
		return server.Start(gCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Walk sync service stopped")
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
