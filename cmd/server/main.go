package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"netcensus/internal/config"
	"netcensus/internal/core/aggregate"
	"netcensus/internal/handler"
	"netcensus/internal/hub"
	"netcensus/internal/loader"
	"netcensus/internal/logger"
	"netcensus/internal/metrics"
	"netcensus/internal/repository/sqlite"
	"netcensus/internal/service"
	"netcensus/internal/watcher"
)

func main() {
	// Command line flags override the config file
	configPath := flag.String("config", "", "config file (default: search standard locations)")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	scansDir := flag.String("scans", "", "snapshot directory")
	watch := flag.Bool("watch", false, "re-aggregate when snapshot files change")
	initConfig := flag.Bool("init-config", false, "write a default config file and exit")
	flag.Parse()

	if *initConfig {
		path := *configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	cfg, foundPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *scansDir != "" {
		cfg.Snapshots.Dir = *scansDir
	}
	if *watch {
		cfg.Snapshots.Watch = true
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	if foundPath != "" {
		log.Info().Str("path", foundPath).Msg("config loaded")
	} else {
		log.Info().Msg("no config file found, using defaults")
	}
	log.Info().Msg(cfg.Summary())

	if err := serve(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func serve(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()
	log.Info().Str("path", cfg.Database.Path).Msg("database opened")

	// Initialize event bus and SSE hub
	eventBus := service.NewEventBus()
	sseHub := hub.New(logger.WithComponent(log, "hub"))
	go sseHub.Run(ctx)

	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	defer eventBus.Unsubscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(string(event.Type), event.Payload)
			case <-ctx.Done():
				return
			}
		}
	}()

	recorder := metrics.New(prometheus.DefaultRegisterer)

	engine := aggregate.New(
		aggregate.WithWeights(cfg.Scoring),
		aggregate.WithVersion(cfg.Output.Version),
		aggregate.WithLogger(logger.WithComponent(log, "aggregate")),
		aggregate.WithObserver(recorder),
	)
	ld := loader.New(
		loader.WithClassifier(loader.NewClassifier(cfg.Provenance.Default, cfg.Provenance.Rules)),
		loader.WithMaxConcurrent(cfg.Snapshots.MaxConcurrentParse),
		loader.WithLogger(logger.WithComponent(log, "loader")),
	)
	svc := service.NewAggregationService(repo, ld, engine, eventBus, []string{cfg.Snapshots.Dir},
		service.WithLogger(logger.WithComponent(log, "service")),
		service.WithRunObserver(recorder),
	)

	// Initial aggregation; the server still starts when the directory is empty
	go func() {
		if _, err := svc.Run(ctx, service.RunOptions{}); err != nil {
			log.Warn().Err(err).Msg("initial aggregation did not produce an inventory")
		}
	}()

	if cfg.Snapshots.Watch {
		w := watcher.New([]string{cfg.Snapshots.Dir}, func() {
			if _, err := svc.Run(ctx, service.RunOptions{}); err != nil {
				log.Warn().Err(err).Msg("re-aggregation failed")
			}
		}).WithDebounce(cfg.Snapshots.Debounce.Duration()).WithLogger(logger.WithComponent(log, "watcher"))

		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("snapshot watcher stopped")
			}
		}()
	}

	// Setup routes
	mux := http.NewServeMux()
	handler.NewInventoryHandler(svc, logger.WithComponent(log, "api")).Register(mux)
	mux.Handle("GET /events", sseHub)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	httpLog := logger.WithComponent(log, "http")
	finalHandler := handler.Chain(mux,
		handler.Recover(httpLog),
		handler.CORS,
		handler.Logger(httpLog),
	)

	// No write timeout: /events streams stay open
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
