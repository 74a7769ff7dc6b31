package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	catalog "apitest-backend"
	"apitest-backend/internal/api"
	"apitest-backend/internal/bus"
	"apitest-backend/internal/config"
	"apitest-backend/internal/contract"
	"apitest-backend/internal/executor"
	"apitest-backend/internal/results"
)

type publisher interface {
	Publish(subject string, payload any) error
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.Logger()
	ctx := context.Background()

	store, err := catalog.NewCatalog(ctx, cfg.Connection())
	if err != nil {
		logger.Error("failed to open catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("catalog not reachable at startup", slog.String("error", err.Error()))
	}
	cancel()

	var sink results.Sink = results.NewMemorySink()
	if cfg.RedisURL != "" {
		redisSink, err := results.NewRedisSink(ctx, cfg.RedisURL, cfg.ResultTTL())
		if err != nil {
			logger.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisSink.Close()
		sink = redisSink
	}

	var events publisher = bus.Discard{}
	if cfg.NATSURL != "" {
		natsPublisher, err := bus.NewPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to nats", slog.String("error", err.Error()))
			os.Exit(1)
		}
		events = natsPublisher
	}
	defer events.Close()

	runner := executor.New(store, executor.NewClient(cfg.RequestTimeout()), sink, events, logger)
	importer := contract.NewImporter(store, contract.NewBuilder(cfg.BaseURL, nil, nil), events, logger)

	handler := &api.Handler{
		Catalog:  store,
		Runner:   runner,
		Importer: importer,
		Results:  sink,
		Bus:      events,
		Logger:   logger,
		Timeout:  cfg.HandlerTimeout(),
		Strict:   cfg.ContractStrict,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.HandlerTimeout()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.HandlerTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("api test service listening",
		slog.String("port", cfg.Port),
		slog.String("driver", cfg.Database.Driver),
		slog.Bool("redis", cfg.RedisURL != ""),
		slog.Bool("nats", cfg.NATSURL != ""),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
