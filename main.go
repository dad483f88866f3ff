package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"lexbook/config"
	"lexbook/cron"
	"lexbook/database"
	lawyerRepo "lexbook/database/repository/lawyer"
	notificationRepo "lexbook/database/repository/notification"
	schedulerRepo "lexbook/database/repository/scheduler"
	"lexbook/handlers"
	"lexbook/middleware"
	"lexbook/routes"
	"lexbook/services/booking"
	"lexbook/services/notification"
	"lexbook/services/tasks"
	"lexbook/utils"
)

type stores struct {
	scheduler     schedulerRepo.SchedulerRepository
	lawyers       lawyerRepo.LawyerRepository
	notifications notificationRepo.NotificationRepository
	mongoClient   *mongo.Client
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		logger.Warn("Using in-memory store; data is lost on restart")
		mem := schedulerRepo.NewMemoryStore()
		return &stores{scheduler: mem, lawyers: mem, notifications: mem}, nil
	}

	client, err := database.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.DatabaseName)
	scheduler := schedulerRepo.NewMongoSchedulerRepo(db)
	if err := scheduler.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	logger.Info("Connected to MongoDB", zap.String("database", cfg.DatabaseName))
	return &stores{
		scheduler:     scheduler,
		lawyers:       lawyerRepo.NewMongoLawyerRepo(db),
		notifications: notificationRepo.NewMongoNotificationRepo(db),
		mongoClient:   client,
	}, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("main: failed to open store", zap.Error(err))
	}

	verifier, err := utils.NewTokenVerifier(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("main: JWT_SECRET is required", zap.Error(err))
	}

	pingers := map[string]utils.Pinger{}
	if st.mongoClient != nil {
		pingers["mongo"] = func(ctx context.Context) error { return st.mongoClient.Ping(ctx, nil) }
	}

	dispatcher := notification.NewDispatcher(logger)
	engineOpts := []booking.Option{
		booking.WithTxTimeout(cfg.BookingTxTimeout),
		booking.WithHorizonDays(cfg.BookingHorizonDays),
		booking.WithRetry(
			booking.WithMaxAttempts(cfg.BookingMaxAttempts),
			booking.WithBaseDelay(cfg.BookingRetryBaseDelay),
		),
	}

	// Redis backs the availability cache and the reminder queue. Both are
	// optional: without Redis, bookings still work.
	var (
		cacheClient  *redis.Client
		asynqClient  *asynq.Client
		asynqServer  *asynq.Server
		asynqMux     *asynq.ServeMux
		reminderOpts = asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisReminderQueueDB,
		}
	)
	cacheClient, err = utils.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisCacheDB)
	if err != nil {
		logger.Warn("Redis unavailable; running without availability cache and reminders", zap.Error(err))
	} else {
		pingers["redis"] = func(ctx context.Context) error { return cacheClient.Ping(ctx).Err() }
		engineOpts = append(engineOpts, booking.WithAvailabilityCache(
			utils.NewRedisAvailabilityCache(cacheClient, cfg.AvailabilityCacheTTL)))

		asynqClient = asynq.NewClient(reminderOpts)
		engineOpts = append(engineOpts, booking.WithReminderScheduler(
			tasks.NewReminderScheduler(asynqClient, cfg.ReminderLead, logger)))

		worker := cron.NewReminderWorker(st.scheduler, dispatcher, logger)
		asynqServer, asynqMux = cron.NewServer(reminderOpts, worker, logger)
		if err := asynqServer.Start(asynqMux); err != nil {
			logger.Error("Reminder worker failed to start", zap.Error(err))
			asynqServer = nil
		}
	}

	engine := booking.NewEngine(st.scheduler, dispatcher, logger, engineOpts...)
	validator := booking.NewValidator(cfg.BookingHorizonDays)

	monitor := utils.NewHealthMonitor(time.Minute, logger, pingers)
	monitor.Start(ctx)

	consultationHandler := handlers.NewConsultationHandler(engine, validator, logger, cfg.DebugErrors)
	lawyerHandler := handlers.NewLawyerHandler(engine, st.lawyers, logger, cfg.DebugErrors)
	notificationHandler := handlers.NewNotificationHandler(st.notifications, logger, cfg.DebugErrors)

	handlerBundle := &handlers.HandlerBundle{
		Verifier: verifier,
		Health:   handlers.HealthHandler(monitor),

		ListLawyers:     lawyerHandler.ListLawyersHandler,
		GetAvailability: lawyerHandler.GetAvailabilityHandler,
		SetAvailability: lawyerHandler.SetAvailabilityHandler,

		CreateConsultation: consultationHandler.CreateConsultationHandler,
		GetConsultation:    consultationHandler.GetConsultationHandler,
		UpdateStatus:       consultationHandler.UpdateStatusHandler,

		ListNotifications: notificationHandler.ListNotificationsHandler,
		MarkNotification:  notificationHandler.MarkReadHandler,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(utils.ErrorHandler(logger))
	routes.RegisterRoutes(router, handlerBundle, cfg.AllowedOrigins(),
		middleware.NewRateLimiter(cfg.MaxRequestsPerMin, logger).Middleware())

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	if asynqServer != nil {
		asynqServer.Shutdown()
	}
	if asynqClient != nil {
		_ = asynqClient.Close()
	}
	if cacheClient != nil {
		_ = cacheClient.Close()
	}
	if st.mongoClient != nil {
		_ = st.mongoClient.Disconnect(shutdownCtx)
	}
	logger.Sugar().Info("main: server stopped gracefully")
}
