package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/jessiesmp/intake/internal/app"
	"github.com/jessiesmp/intake/internal/app/httpapi"
	"github.com/jessiesmp/intake/internal/app/metrics"
	"github.com/jessiesmp/intake/internal/app/review"
	"github.com/jessiesmp/intake/internal/app/storage/jsonfile"
	"github.com/jessiesmp/intake/internal/app/storage/postgres"
	"github.com/jessiesmp/intake/internal/config"
	"github.com/jessiesmp/intake/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "intake: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		configPath = flag.String("config", "", "path to YAML config file (optional)")
		envFile    = flag.String("env-file", ".env", "path to env file (missing file is ignored)")
	)
	flag.Parse()

	// A missing env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load(*envFile)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Component: "intake", Level: cfg.LogLevel})

	stores, cleanup, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := app.Options{
		RootActor:      cfg.RootAdmin,
		DigestSchedule: cfg.DigestSchedule,
	}
	if cfg.TelegramToken != "" && cfg.AdminChatID != 0 {
		transport, err := review.NewTelegramTransport(cfg.TelegramToken, cfg.AdminChatID, log)
		if err != nil {
			return fmt.Errorf("telegram transport: %w", err)
		}
		opts.Transport = transport
	} else {
		log.Warn("telegram bot not configured; review channel disabled")
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Stop(stopCtx); err != nil {
			log.WithError(err).Warn("stop services")
		}
	}()

	limiter := httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	api := httpapi.Instrument(limiter.Handler(httpapi.NewHandler(application)))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (app.Stores, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverJSONFile:
		store, err := jsonfile.New(cfg.DataDir)
		if err != nil {
			return app.Stores{}, nil, fmt.Errorf("open json file store: %w", err)
		}
		log.WithField("dir", cfg.DataDir).Info("using json file storage")
		return app.Stores{Applications: store, Roles: store, Notifications: store}, func() {}, nil

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return app.Stores{}, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return app.Stores{}, nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("using postgres storage")
		return app.Stores{Applications: store, Roles: store, Notifications: store}, func() { store.Close() }, nil

	default:
		log.Info("using in-memory storage")
		return app.Stores{}, func() {}, nil
	}
}
