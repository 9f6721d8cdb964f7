package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/disaster-mapping/internal/capture"
	"github.com/example/disaster-mapping/internal/logging"
)

func main() {
	configPath := flag.String("config", "capture.yaml", "path to agent configuration")
	flag.Parse()

	logger, err := logging.NewDevelopmentLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := capture.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := capture.NewDirectorySource(cfg.Camera.SourceDir)
	uploader := capture.NewUploader(cfg.API, logger)
	agent := capture.NewAgent(source, uploader, cfg.Camera, logger)

	logger.Info("starting capture agent",
		zap.String("source_dir", cfg.Camera.SourceDir),
		zap.String("endpoint", cfg.API.Endpoint))

	if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("capture agent failed", zap.Error(err))
	}

	stats := uploader.Stats()
	logger.Info("capture agent stopped",
		zap.Int64("uploaded", stats.Uploaded),
		zap.Int64("failed", stats.Failed),
		zap.Int64("bytes_uploaded", stats.BytesUploaded))
}
