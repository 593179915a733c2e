package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"ticketinventory/config"
	_ "ticketinventory/docs"
	"ticketinventory/internal/adapters/auth"
	"ticketinventory/internal/adapters/email"
	"ticketinventory/internal/adapters/events"
	"ticketinventory/internal/adapters/idempotency"
	"ticketinventory/internal/adapters/metrics"
	"ticketinventory/internal/clock"
	deliveryhttp "ticketinventory/internal/delivery/http"
	"ticketinventory/internal/delivery/http/controllers"
	"ticketinventory/internal/domain"
	"ticketinventory/internal/repository/memory"
	"ticketinventory/internal/repository/postgres"
	"ticketinventory/internal/services"
	"ticketinventory/migrations"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// @title Ticket Inventory API
// @version 1.0
// @description Event catalog, inventory accounting and reservation lifecycle with a hard capacity guarantee.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

type stores struct {
	events       domain.EventRepository
	reservations domain.ReservationRepository
	locker       domain.InventoryLocker
	close        func() error
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return &stores{
			events:       memory.NewEventRepository(store),
			reservations: memory.NewReservationRepository(store),
			locker:       memory.NewInventoryLocker(store),
			close:        func() error { return nil },
		}, nil
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := migrations.Apply(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &stores{
		events:       postgres.NewEventRepository(db),
		reservations: postgres.NewReservationRepository(db),
		locker:       postgres.NewInventoryLocker(db, cfg.LockTimeout),
		close:        db.Close,
	}, nil
}

func buildNotifier(cfg *config.Config, logger *slog.Logger) (domain.Notifier, func() error, error) {
	closers := func() error { return nil }
	var notifiers services.MultiNotifier

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		notifiers = append(notifiers, publisher)
		closers = publisher.Close
		logger.Info("publishing reservation events", "topic", cfg.KafkaTopic)
	}

	if cfg.Email.Provider != "noop" {
		mailer, err := email.NewMailer(email.MailerConfig{
			Provider:    cfg.Email.Provider,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
			SES: email.SESConfig{
				Region:             cfg.Email.AWSRegion,
				AccessKeyID:        cfg.Email.AWSAccessKeyID,
				SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
				InsecureSkipVerify: cfg.Email.AWSInsecureSkipVerify,
			},
		}, logger)
		if err != nil {
			return nil, closers, fmt.Errorf("create mailer: %w", err)
		}
		directory, err := email.ParseStaticDirectory(cfg.Email.Directory)
		if err != nil {
			return nil, closers, fmt.Errorf("parse EMAIL_DIRECTORY: %w", err)
		}
		renderer, err := email.NewTemplateRenderer()
		if err != nil {
			return nil, closers, fmt.Errorf("load email templates: %w", err)
		}
		notifiers = append(notifiers, services.NewEmailNotifier(mailer, renderer, directory, logger))
	}

	if len(notifiers) == 0 {
		return services.NopNotifier{}, closers, nil
	}
	return notifiers, closers, nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	st, err := openStores(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Warn("close store", "err", err)
		}
	}()

	keys := idempotency.NewNoopStore()
	if cfg.RedisURL != "" {
		client, err := idempotency.NewClient(startupCtx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer func(c *redis.Client) { _ = c.Close() }(client)
		keys = idempotency.NewRedisStore(client, cfg.IdempotencyTTL)
	} else {
		logger.Warn("REDIS_URL not set, Idempotency-Key replays are not detected")
	}

	notifier, closeNotifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeNotifier(); err != nil {
			logger.Warn("close notifier", "err", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	clk := clock.NewSystem()
	eventSvc := services.NewEventService(st.events, st.reservations, st.locker, clk, recorder, logger, cfg.ReserveMaxRetries, cfg.RequestTimeout)
	inventorySvc := services.NewInventoryService(st.events, st.reservations, cfg.RequestTimeout)
	reservationSvc := services.NewReservationService(st.events, st.reservations, st.locker, keys, notifier, recorder, clk, logger, cfg.ReserveMaxRetries, cfg.RequestTimeout)

	mux := deliveryhttp.NewRouter(
		controllers.NewEventController(logger, eventSvc, inventorySvc),
		controllers.NewReservationController(logger, reservationSvc),
		auth.NewJWTVerifier(cfg.JWTSecret),
		recorder.Handler(),
		logger,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deliveryhttp.NewHandler(mux, cfg.CORSAllowedOrigins, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("api listening", "port", cfg.Port, "store", cfg.Store, "env", cfg.Environment)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
