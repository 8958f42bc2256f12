package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "kithbook-backend/cmd/api"
	authRepo "kithbook-backend/internal/auth/repository"
	authUsecase "kithbook-backend/internal/auth/usecase"
	"kithbook-backend/internal/contact/identity"
	contactDelivery "kithbook-backend/internal/contact/delivery"
	contactRepo "kithbook-backend/internal/contact/repository"
	contactUsecase "kithbook-backend/internal/contact/usecase"
	interactionRepo "kithbook-backend/internal/interaction/repository"
	"kithbook-backend/internal/notification"
	syncDelivery "kithbook-backend/internal/sync/delivery"
	syncdomain "kithbook-backend/internal/sync/domain"
	syncRepo "kithbook-backend/internal/sync/repository"
	"kithbook-backend/internal/sync/scheduler"
	syncUsecase "kithbook-backend/internal/sync/usecase"
	"kithbook-backend/pkg/cache"
	"kithbook-backend/pkg/config"
	"kithbook-backend/pkg/database"
	"kithbook-backend/pkg/google"
	"kithbook-backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zlog.Fatal("Failed to access database handle", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zlog); err != nil {
		zlog.Fatal("Failed to migrate database", zap.Error(err))
	}

	redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		zlog.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize repositories (dependency injection)
	userRepository := authRepo.NewUserRepository(db)
	contactRepository := contactRepo.NewGormContactRepository(db)
	interactionRepository := interactionRepo.NewGormInteractionRepository(db)
	jobRepository := syncRepo.NewRedisJobRepository(redisClient)

	classifier, err := identity.NewDefaultClassifier(cfg.ExtraPatterns(), cfg.ExtraDomains())
	if err != nil {
		zlog.Fatal("Failed to build sender classifier", zap.Error(err))
	}

	googleService := google.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, zlog)

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepository, googleService, cfg, zlog)
	googleService.SetTokenRefreshCallback(authUsecaseInstance.UpdateGoogleTokens)

	contactUsecaseInstance := contactUsecase.NewContactUsecase(contactRepository, interactionRepository, userRepository, classifier, zlog)
	graphUsecaseInstance := contactUsecase.NewGraphUsecase(contactRepository, interactionRepository, zlog)

	syncUsecaseInstance := syncUsecase.NewSyncUsecase(
		userRepository,
		contactRepository,
		interactionRepository,
		contactUsecaseInstance,
		googleService,
		syncUsecase.Options{
			CalendarWindowDays: cfg.CalendarWindowDays,
			ContactBatchSize:   cfg.GmailContactBatchSize,
			MaxResults:         cfg.GmailMaxResults,
		},
		zlog,
	)

	syncWorker := syncUsecase.NewSyncWorkerService(syncUsecaseInstance, jobRepository, cfg.SyncWorkers, zlog)
	syncWorker.Start()
	defer syncWorker.Stop()

	syncScheduler := scheduler.NewScheduler(
		userRepository,
		syncWorker,
		contactUsecaseInstance,
		cfg.SyncInterval,
		cfg.ReconcileInterval,
		cfg.SyncUserConcurrency,
		zlog,
	)
	syncScheduler.Start()
	defer syncScheduler.Stop()

	// Initialize Notification Service (Pub/Sub)
	// Only start if project ID and topic are configured
	var notifService *notification.Service
	if cfg.GoogleProjectID != "" && cfg.GooglePubSubTopic != "" {
		notifService, err = notification.NewService(ctx, cfg.GoogleProjectID, cfg.GooglePubSubTopic, cfg.GoogleCredentials, userRepository, syncWorker, googleService, zlog)
		if err != nil {
			zlog.Error("Failed to initialize notification service", zap.Error(err))
		} else {
			defer notifService.Close()
			go func() {
				if err := notifService.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					zlog.Error("Notification service stopped", zap.Error(err))
				}
			}()
		}
	} else {
		zlog.Warn("Pub/Sub not configured, push notifications disabled")
	}

	// A fresh sign-in queues a full sync and renews the mailbox watch
	authUsecaseInstance.SetSignInCallback(func(userID string) {
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if _, err := syncWorker.Enqueue(bg, userID, syncdomain.JobFull); err != nil {
				zlog.Warn("Failed to queue sign-in sync", zap.String("user_id", userID), zap.Error(err))
			}
			if notifService == nil {
				return
			}
			user, err := userRepository.FindByID(bg, userID)
			if err != nil || user == nil {
				return
			}
			if err := notifService.WatchUser(bg, user); err != nil {
				zlog.Warn("Failed to watch mailbox", zap.String("user_id", userID), zap.Error(err))
			}
		}()
	})

	// Initialize HTTP handler
	handler := api.NewHandler(
		authUsecaseInstance,
		contactDelivery.NewContactHandler(contactUsecaseInstance, graphUsecaseInstance),
		syncDelivery.NewSyncHandler(syncWorker),
		cfg,
		zlog,
	)
	server := handler.Server(":" + cfg.Port)

	go func() {
		zlog.Info("Server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown failed", zap.Error(err))
	}
}
