package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/roompick/catalog"
	"github.com/danielhkuo/roompick/cliparse"
	"github.com/danielhkuo/roompick/db"
	"github.com/danielhkuo/roompick/hub"
	"github.com/danielhkuo/roompick/memstore"
	"github.com/danielhkuo/roompick/middleware"
	"github.com/danielhkuo/roompick/router"
	"github.com/danielhkuo/roompick/session"
)

func main() {
	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	if err := run(cfg); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg cliparse.Config) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var cat catalog.Catalog = catalog.Default()
	if cfg.CatalogURL != "" {
		cat = catalog.NewHTTPCatalog(cfg.CatalogURL)
		slog.Info("Using remote catalog", "url", cfg.CatalogURL)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := hub.NewRegistry(promRegistry, slog.Default())
	defer registry.Close()

	coord, err := session.New(session.Config{
		Store:        store,
		Catalog:      cat,
		Broadcaster:  registry,
		StoreTimeout: cfg.StoreTimeout,
		PromRegistry: promRegistry,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler: middleware.CORS(router.NewRouter(coord, registry, promRegistry)),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// hijacked websockets are not tracked by Shutdown
		registry.Close()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("Server closed", "error", err)
	return err
}

// openStore picks the room store for the configured database type
func openStore(cfg cliparse.Config) (session.Store, func(), error) {
	if cfg.DatabaseType == cliparse.DatabaseMemory {
		slog.Warn("Using in-memory store; rooms are lost on restart")
		return memstore.NewStore(), func() {}, nil
	}

	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		dbConn.Close()
		return nil, nil, err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	return db.NewStore(dbConn), func() { dbConn.Close() }, nil
}
