package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalscore/internal/advisory"
	"vitalscore/internal/api"
	"vitalscore/internal/config"
	"vitalscore/internal/events"
	"vitalscore/internal/ingest"
	"vitalscore/internal/logging"
	"vitalscore/internal/model"
	"vitalscore/internal/pipeline"
	"vitalscore/internal/results"
	"vitalscore/internal/storage"
	"vitalscore/internal/weights"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vitalscored v%s\n", version)
		return
	}

	var mgr *config.Manager
	if *configPath != "" {
		m, err := config.NewManager(config.ResolvePath(*configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		mgr = m
	} else {
		mgr = config.NewManagerWithDefaults()
	}
	cfg := mgr.Get()
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			logger.Error("storage schema init failed", "err", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	resultsStore := results.NewStore(cfg.Results.StoreLimit)
	eventsStore := events.NewStore(cfg.Events.StoreLimit)
	profiles := pipeline.NewStaticProfiles()

	var advisor advisory.Advisor
	if cfg.Scoring.Advisory.Enabled {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		client, err := advisory.NewAnthropicAdvisor(apiKey, cfg.Scoring.Advisory.Model)
		if err != nil {
			logger.Warn("advisory disabled", "err", err)
		} else {
			advisor = advisory.NewCachingAdvisor(client, cfg.Scoring.Advisory.CacheSize, cfg.Scoring.Advisory.CacheTTL)
			logger.Info("weight advisory enabled", "model", cfg.Scoring.Advisory.Model, "cache_ttl", cfg.Scoring.Advisory.CacheTTL)
		}
	}
	resolver := weights.NewResolver(advisor, cfg.Scoring.Advisory.Timeout, logging.WithComponent(logger, "weights"))
	resolver.SetDefaults(model.Weights{
		HRV:      cfg.Scoring.Weights.HRV,
		Sleep:    cfg.Scoring.Weights.Sleep,
		Recovery: cfg.Scoring.Weights.Recovery,
		Activity: cfg.Scoring.Weights.Activity,
	})

	engine := pipeline.NewEngine(cfg, logging.WithComponent(logger, "pipeline"), resultsStore, eventsStore, store, profiles, resolver)

	samples := make(chan model.MetricSample, cfg.Ingest.ChannelBuffer)
	engine.Start(ctx, samples)

	parser := ingest.NewParser()
	ingestLogger := logging.WithComponent(logger, "ingest")
	ingest.StartREST(ctx, mgr, samples, ingestLogger)
	ingest.StartKafka(ctx, mgr, parser, samples, ingestLogger)
	ingest.StartFileTail(ctx, mgr, parser, samples, ingestLogger)

	api.Start(ctx, mgr, resultsStore, eventsStore, profiles, engine, logging.WithComponent(logger, "api"), version)

	if mgr.Path() != "" {
		go mgr.Watch(3*time.Second,
			func(next *config.Config) {
				engine.UpdateConfig(next)
				logger.Info("config reloaded", "path", mgr.Path())
			},
			func(err error) {
				logger.Warn("config reload failed", "err", err)
			},
			ctx.Done(),
		)
	}

	logger.Info("vitalscored started", "version", version)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	cancel()
	time.Sleep(200 * time.Millisecond)
}
