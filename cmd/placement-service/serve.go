package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/rackslot/rackslot-backend/internal/placement/consumers"
	"github.com/rackslot/rackslot-backend/internal/placement/events"
	"github.com/rackslot/rackslot-backend/internal/placement/handler"
	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/internal/placement/session"
	"github.com/rackslot/rackslot-backend/pkg/config"
	"github.com/rackslot/rackslot-backend/pkg/httputil"
	"github.com/rackslot/rackslot-backend/pkg/logger"
	"github.com/rackslot/rackslot-backend/pkg/messaging"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event consumers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			skip, _ := cmd.Flags().GetBool("skip-migrations")
			return serve(!skip)
		},
	}
	cmd.Flags().Bool("skip-migrations", false, "Do not apply pending migrations on startup")
	return cmd
}

func serve(migrate bool) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	log := rt.log
	cfg := rt.cfg
	log.Info().Msg("starting Placement Service")

	if err := rt.openStore(migrate); err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions, sessionHealth, err := openSessions(ctx, cfg, log)
	if err != nil {
		return err
	}

	// RabbitMQ is optional; without it commits are not announced
	var (
		publisher service.EventPublisher
		rmq       *messaging.RabbitMQ
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer rmq.Close()

		if err := rmq.DeclareDeadLetterQueue(events.ServiceName); err != nil {
			return fmt.Errorf("failed to declare dead letter queue: %w", err)
		}

		placementPublisher, err := events.NewPlacementEventPublisher(rmq, log)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		publisher = placementPublisher
	}

	svc := rt.newService(sessions, publisher)
	if err := svc.EnsureCounters(ctx); err != nil {
		return fmt.Errorf("failed to create kanban counters: %w", err)
	}

	if rmq != nil {
		locationConsumer, err := consumers.NewLocationEventConsumer(rmq, consumers.NewLocationEventHandler(rt.store, log), log)
		if err != nil {
			return fmt.Errorf("failed to create location event consumer: %w", err)
		}
		if err := locationConsumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start location event consumer: %w", err)
		}
		go watchBroker(ctx, rmq, cfg.RabbitMQ.ReconnectDelay, locationConsumer, log)
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Operator)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", httputil.OperatorHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "healthy",
			"service":  events.ServiceName,
			"database": rt.health(r.Context()),
			"sessions": sessionHealth(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	r.Mount("/api/v1/placement", handler.New(svc, log).Routes())

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}

// openSessions returns the configured workflow session store.
func openSessions(ctx context.Context, cfg *config.Config, log *logger.Logger) (session.Store, healthFunc, error) {
	if cfg.Workflow.SessionStore != config.SessionStoreRedis {
		return session.NewMemoryStore(), func(context.Context) map[string]string {
			return map[string]string{"status": "up", "store": config.SessionStoreMemory}
		}, nil
	}

	client := session.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr(), err)
	}
	log.Info().Str("addr", cfg.Redis.Addr()).Dur("session_ttl", cfg.Redis.SessionTTL).Msg("using Redis session store")

	health := func(ctx context.Context) map[string]string {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return map[string]string{"status": "down", "store": config.SessionStoreRedis, "error": err.Error()}
		}
		return map[string]string{"status": "up", "store": config.SessionStoreRedis}
	}
	return session.NewRedisStore(client, cfg.Redis.SessionTTL), health, nil
}

// watchBroker re-dials a dropped RabbitMQ connection and restarts the
// consumer on the new channel.
func watchBroker(ctx context.Context, rmq *messaging.RabbitMQ, interval time.Duration, consumer *consumers.LocationEventConsumer, log *logger.Logger) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if rmq.Health()["status"] == "up" {
			continue
		}

		log.Warn().Msg("RabbitMQ connection lost")
		if err := rmq.Reconnect(ctx); err != nil {
			log.Error().Err(err).Msg("failed to reconnect to RabbitMQ")
			continue
		}
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("failed to restart location event consumer")
		}
	}
}
