package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"titan/internal/api"
	"titan/internal/backup"
	"titan/internal/config"
	"titan/internal/database"
	"titan/internal/domain"
	"titan/internal/events"
	"titan/internal/logging"
	"titan/internal/metrics"
	"titan/internal/models"
	"titan/internal/notify"
	"titan/internal/repository"
	"titan/internal/service"
	"titan/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	roster := loadRoster(cfg, logger)
	technicians := service.NewTechnicianService(roster)

	mirror, ready, cleanup, err := initMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	st := store.New(mirror, logging.Component(logger, "store"), store.WithPersistObserver(metrics.ObservePersist))
	st.Initialize(ctx)
	metrics.SetBookingsStored(st.Len())

	eventBus := newEventBus(st, logger)
	notifier := initNotifier(ctx, cfg, logger)

	bookings := service.NewBookingService(
		st,
		notifier,
		eventBus,
		technicians,
		service.NewIDGenerator(nil).Observe(st.List()),
		logging.Component(logger, "booking-service"),
	)

	if cfg.Backup.Enabled {
		backupService := backup.NewService(st, cfg.Backup, logging.Component(logger, "backup"))
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(&cfg.HTTP, bookings, technicians, logging.Component(logger, "http"), api.WithReadiness(ready))

	return serve(ctx, httpServer, st, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.DefaultPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.App.Version == "" {
		cfg.App.Version = version
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

// loadRoster reads the technician roster. A missing or broken roster file
// only disables assignment.
func loadRoster(cfg *config.Config, logger *zerolog.Logger) []models.Technician {
	roster, err := service.LoadRoster(cfg.Technicians.Path)
	if err != nil {
		logger.Warn().Err(err).Str("technicians_path", cfg.Technicians.Path).Msg("technician roster unavailable")
		return nil
	}
	logger.Info().Int("count", len(roster)).Msg("technician roster loaded")
	return roster
}

func initMirror(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store.Mirror, api.ReadinessCheck, func(), error) {
	noop := func() {}
	mirrorLogger := logging.Component(logger, "mirror")

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Warn().Msg("memory storage driver: bookings are not persisted")
		return repository.NewMemoryMirror(), nil, noop, nil

	case config.StorageFile:
		logger.Info().Str("path", cfg.Storage.Path).Msg("using file mirror")
		return repository.NewFileMirror(cfg.Storage.Path), nil, noop, nil

	case config.StorageSQLite:
		db, err := database.NewDB(cfg.Storage.SQLitePath, mirrorLogger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Storage.SQLitePath).Msg("init database")
			return nil, nil, noop, err
		}
		return db, db.PingContext, func() { _ = db.Close() }, nil

	case config.StorageRedis, config.StorageFailover:
		client := repository.NewRedisClient(cfg.Storage.Redis)
		cleanup := func() { _ = repository.Close(client) }
		ready := func(ctx context.Context) error { return repository.Ping(ctx, client) }
		redisMirror := repository.NewRedisMirror(client, cfg.Storage.Redis.Key)

		if err := repository.Ping(ctx, client); err != nil {
			if cfg.Storage.Driver == config.StorageRedis {
				cleanup()
				return nil, nil, noop, fmt.Errorf("redis connection failed: %w", err)
			}
			logger.Warn().Err(err).Msg("redis connection failed, starting on the file mirror")
		} else {
			logger.Info().Str("addr", cfg.Storage.Redis.Address).Msg("redis connected")
		}

		if cfg.Storage.Driver == config.StorageRedis {
			return redisMirror, ready, cleanup, nil
		}
		failover := repository.NewFailoverMirror(redisMirror, repository.NewFileMirror(cfg.Storage.Path), mirrorLogger)
		return failover, nil, cleanup, nil
	}

	return nil, nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func initNotifier(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	nc := cfg.Notifications
	var notifiers notify.Multi

	if nc.Email.Enabled {
		gmailService, err := notify.NewGmailService(ctx, nc.Email)
		if err != nil {
			logger.Warn().Err(err).Msg("gmail init failed, continuing without email")
		} else {
			notifiers = append(notifiers, notify.NewGmailMailer(gmailService, nc.Email.From, nc.OwnerEmail, logging.Component(logger, "gmail")))
			logger.Info().Str("owner_email", nc.OwnerEmail).Msg("email notifications enabled")
		}
	}

	bot, err := notify.NewTelegramBot(nc.Telegram.BotToken, nc.Telegram.Debug)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("telegram init failed, continuing without telegram")
	case bot != nil && nc.Telegram.OwnerChatID != 0:
		notifiers = append(notifiers, notify.NewTelegramNotifier(bot, nc.Telegram.OwnerChatID, logging.Component(logger, "telegram")))
		logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
	}

	if len(notifiers) == 0 {
		logger.Warn().Msg("no notification channels configured")
		return notify.Nop{}
	}
	return notifiers
}

func newEventBus(st *store.Store, logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	events.SubscribeMetrics(bus, st.Len, logging.Component(logger, "events"))
	return bus
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, st *store.Store, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error().Err(err).Msg("http shutdown")
	}
	st.Wait()

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
