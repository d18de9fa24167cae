package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/clients"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/config"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/db"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/events"
	httpapi "github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/http"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/storage/file"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/storage/memory"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/storage/postgres"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/storage/sqlite"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

type closer struct {
	name string
	fn   func() error
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var closers []closer
	defer func() {
		// reverse order: sessions flush before their storage goes away
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].fn(); err != nil {
				logger.Warn("close failed", zap.String("component", closers[i].name), zap.Error(err))
			}
		}
	}()

	storage, pool, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closer{"storage", closeStorage})

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	orders, err := clients.NewClient("orders", cfg.Upstream.OrderURL, httpClient)
	if err != nil {
		return err
	}
	targets := []clients.HealthTarget{{Name: "orders", Client: orders, Path: cfg.Upstream.OrderHealthPath}}

	var catalog httpapi.ProductCatalog
	if cfg.Upstream.CatalogURL != "" {
		c, err := clients.NewClient("catalog", cfg.Upstream.CatalogURL, httpClient)
		if err != nil {
			return err
		}
		catalog = clients.NewCatalogClient(c)
		targets = append(targets, clients.HealthTarget{Name: "catalog", Client: c, Path: "/health"})
	}

	notifier, closeNotifier, err := openNotifier(cfg, pool, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closer{"events", closeNotifier})

	sessions := cart.NewSessions(storage, cart.SessionsConfig{
		KeyPrefix:   cfg.Storage.KeyPrefix,
		MaxStores:   cfg.Storage.MaxSessions,
		IdleTimeout: cfg.Storage.SessionIdleTimeout,
		Logger:      logger,
	})
	closers = append(closers, closer{"sessions", func() error { sessions.Close(); return nil }})

	orchestrator := checkout.NewOrchestrator(
		clients.NewOrderClient(orders, cfg.Upstream.CanvasOrderPath, cfg.Upstream.MerchOrderPath),
		checkout.WithNotifier(notifier),
		checkout.WithLogger(logger),
	)

	handler := httpapi.NewHandler(httpapi.Deps{
		Sessions: sessions,
		Checkout: orchestrator,
		Catalog:  catalog,
		Targets:  targets,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr: ":" + cfg.HTTP.Port,
		Handler: httpapi.NewRouter(handler, httpapi.RouterOptions{
			CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
			SessionCookie:    cfg.HTTP.SessionCookie,
			SecureCookie:     cfg.HTTP.SecureCookie,
			Logger:           logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// checkout waits on two upstream calls
		WriteTimeout: 2*cfg.Upstream.Timeout + 5*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("storefront listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.Bool("events", cfg.Events.RabbitMQURL != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStorage returns the cart storage for the configured driver. pool is
// non-nil only for postgres, where it also backs event sequences.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cart.Storage, *pgxpool.Pool, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Warn("cart storage is in memory; carts are lost on restart")
		return memory.New(), nil, noop, nil

	case config.StorageFile:
		s, err := file.New(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open file storage: %w", err)
		}
		return s, nil, noop, nil

	case config.StorageSQLite:
		s, err := sqlite.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return s, nil, s.Close, nil

	case config.StoragePostgres:
		if cfg.Storage.RunMigrations {
			if err := db.RunMigrations(cfg.Storage.DSN, logger); err != nil {
				return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool, err := db.NewPool(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.New(pool), pool, func() error { pool.Close(); return nil }, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func openNotifier(cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (checkout.Notifier, func() error, error) {
	if cfg.Events.RabbitMQURL == "" {
		return events.LogNotifier{Logger: logger}, func() error { return nil }, nil
	}

	conn, err := events.Dial(cfg.Events.RabbitMQURL)
	if err != nil {
		return nil, nil, err
	}

	var seq events.SequenceRepository = events.NewMemorySequence()
	if pool != nil {
		seq = events.NewPostgresSequence(pool)
	}

	pub, err := events.NewRabbitPublisher(conn, seq, events.PublisherOptions{Producer: cfg.Events.Producer, Logger: logger})
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return pub, func() error {
		return errors.Join(pub.Close(), conn.Close())
	}, nil
}
