package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"demusic/internal/config"
	"demusic/internal/daemon"
	"demusic/internal/jobs"
	"demusic/internal/logging"
	"demusic/internal/media"
	"demusic/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to the config file (default: search standard locations)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return
	}

	tool := media.NewTool(cfg)
	isolator := buildIsolator(cfg)
	runner := pipeline.NewRunner(cfg, store, tool, isolator, logger)
	dispatcher := pipeline.NewDispatcher(cfg, store, runner, logger)

	d, err := daemon.New(cfg, store, dispatcher, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}
	logger.Info("demusicd listening", slog.String("bind", cfg.Paths.APIBind))

	<-ctx.Done()
	logger.Info("demusicd shutting down")
}
