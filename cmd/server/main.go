package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/session_booking/internal/app"
	"github.com/Freeeeeet/session_booking/internal/config"
	"github.com/Freeeeeet/session_booking/internal/controller/httpapi"
	"github.com/Freeeeeet/session_booking/internal/controller/ws"
	"github.com/Freeeeeet/session_booking/internal/metrics"
	"github.com/Freeeeeet/session_booking/internal/notification"
	"github.com/Freeeeeet/session_booking/internal/realtime"
	"github.com/Freeeeeet/session_booking/internal/repository"
	"github.com/Freeeeeet/session_booking/internal/repository/base"
	"github.com/Freeeeeet/session_booking/internal/repository/migrations"
	"github.com/Freeeeeet/session_booking/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting session booking service",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("redis", cfg.RedisEnabled()),
	)

	// Подключаемся к базе данных
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	// Применяем миграции
	migrator, err := app.NewMigrator(pool, migrations.FS, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// Репозитории
	txManager := base.NewTxManager(pool)
	userRepo := repository.NewUserRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)

	// Сервисы
	policy := service.CancellationPolicy{
		ReleaseSlotOnTrainerCancel: cfg.Booking.ReleaseSlotOnTrainerCancel,
		ReleaseSlotOnTraineeCancel: true,
	}
	userService := service.NewUserService(userRepo, logger)
	availabilityService := service.NewAvailabilityService(txManager, availabilityRepo, slotRepo, cfg.Location, logger)
	bookingService := service.NewBookingService(txManager, slotRepo, bookingRepo, userRepo, policy, m, cfg.Location, logger)

	gateway := notification.WithRecorder(newGateway(cfg, userRepo, logger), m)
	reminderService := service.NewReminderService(bookingService, subscriptionRepo, gateway, cfg.Location, logger)

	// Видеосессии
	video, err := newVideoBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer video.close()

	coordinator := realtime.NewCoordinator(video.store, video.hub, bookingService, m, logger)
	wsServer := ws.NewServer(coordinator, video.hub, m, ws.DefaultOptions(), logger)

	// HTTP
	handler := httpapi.NewHandler(availabilityService, bookingService, userService, pool, logger)
	routerCfg := httpapi.RouterConfig{
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		Realtime:       wsServer,
		Recorder:       m,
	}
	if m != nil {
		routerCfg.MetricsPath = cfg.Metrics.Path
		routerCfg.MetricsHandler = m.Handler()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, routerCfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Фоновые задачи
	sched := cfg.Scheduler
	scheduler := app.NewScheduler(logger, m,
		app.UpcomingSessionsTask(reminderService, sched.UpcomingScanInterval.Duration, sched.UpcomingLeadTime.Duration, logger),
		app.ExpiringSubscriptionsTask(reminderService, sched.SubscriptionScanInterval.Duration, sched.SubscriptionLookahead.Duration, logger),
		app.SessionPruneTask(video.store, sched.SessionPruneInterval.Duration, sched.SessionRetention.Duration, logger),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if video.bus != nil {
		g.Go(func() error {
			video.bus.Run(gctx, video.hub.SendLocal)
			return nil
		})
	}

	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		wsServer.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newGateway выбирает канал доставки уведомлений: Telegram, если задан токен, иначе лог
func newGateway(cfg *config.Config, users notification.UserLookup, logger *zap.Logger) notification.Gateway {
	logGateway := notification.NewLogGateway(logger)
	if cfg.TelegramToken == "" {
		return logGateway
	}

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Warn("Telegram bot unavailable, notifications go to the log", zap.Error(err))
		return logGateway
	}

	logger.Info("Telegram notifications enabled")
	return notification.NewTelegramGateway(b, users, logGateway, logger)
}

// videoBackend хранилище сессий и реестр соединений процесса
type videoBackend struct {
	store realtime.SessionStore
	hub   *realtime.Hub
	// bus пересылает кадры между процессами, nil без Redis
	bus   *realtime.RedisBus
	close func()
}

// newVideoBackend использует Redis для сессий и пересылки кадров, если он настроен, иначе память процесса
func newVideoBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*videoBackend, error) {
	if !cfg.RedisEnabled() {
		logger.Info("Using in-memory video session store")
		return &videoBackend{
			store: realtime.NewMemoryStore(),
			hub:   realtime.NewHub(),
			close: func() {},
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	bus := realtime.NewRedisBus(ctx, client, logger)
	logger.Info("Using redis video session store", zap.String("addr", cfg.Redis.Addr))
	return &videoBackend{
		store: realtime.NewRedisStore(client, cfg.Redis.SessionTTL.Duration),
		hub:   realtime.NewClusterHub(bus, logger),
		bus:   bus,
		close: func() {
			if err := bus.Close(); err != nil {
				logger.Warn("Failed to close redis bus", zap.Error(err))
			}
			_ = client.Close()
		},
	}, nil
}
