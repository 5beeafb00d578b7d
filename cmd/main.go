package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AJM432/racing/cache"
	"github.com/AJM432/racing/config"
	"github.com/AJM432/racing/convert"
	"github.com/AJM432/racing/db"
	"github.com/AJM432/racing/handlers"
	"github.com/AJM432/racing/live"
	"github.com/AJM432/racing/repositories"
	api "github.com/AJM432/racing/routes"
	"github.com/AJM432/racing/services"
	"github.com/AJM432/racing/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("converter", cfg.Converter.Mode),
	)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Подключение к Redis (кэш лидерборда работает и без него)
	var lbCache *cache.LeaderboardCache
	if cfg.RedisURL != "" {
		redisClient, err := db.ConnectRedis(cfg.RedisURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("failed to close redis client", slog.Any("error", err))
			}
		}()
		lbCache = cache.NewLeaderboardCache(redisClient)
		logger.Info("redis connection established")
	} else {
		logger.Info("REDIS_URL not set, leaderboard cache disabled")
	}

	// Инициализация хранилища файлов
	var store storage.FileStore
	switch cfg.Storage.Backend {
	case config.StorageBackendR2:
		store, err = storage.NewCloudflareR2Store(storage.CloudflareR2StoreConfig{
			AccountID:       cfg.Storage.R2.AccountID,
			AccessKeyID:     cfg.Storage.R2.AccessKeyID,
			SecretAccessKey: cfg.Storage.R2.SecretAccessKey,
			BucketName:      cfg.Storage.R2.BucketName,
			PublicBaseURL:   cfg.Storage.R2.PublicBaseURL,
		})
	default:
		store, err = storage.NewLocalFileStore(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
	}
	if err != nil {
		logger.Error("failed to initialize file store", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("file store initialized", slog.String("backend", cfg.Storage.Backend))

	// Инициализация конвертера изображений
	var converter convert.Converter
	switch cfg.Converter.Mode {
	case config.ConverterMesh:
		converter = convert.NewHeightmapConverter(cfg.Converter.HeightScale)
	default:
		converter = convert.NewVTracerConverter(cfg.Converter.TracerBin, convert.DefaultTraceProfile(), cfg.Converter.Timeout)
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	trackRepo := repositories.NewPostgresTrackRepository(dbConn)
	leaderboardRepo := repositories.NewPostgresLeaderboardRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	trackService := services.NewTrackService(
		dbConn, // For delete transactions
		trackRepo,
		leaderboardRepo,
		store,
		converter,
		lbCache,
		logger,
	)
	leaderboardService := services.NewLeaderboardService(
		leaderboardRepo,
		trackRepo,
		lbCache,
		wsHub,
		logger,
	)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	trackHandler := handlers.NewTrackHandler(trackService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, trackService)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		trackHandler,
		leaderboardHandler,
		webSocketHandler,
	)

	// The local backend serves its own assets; R2 serves them from the bucket.
	if cfg.Storage.Backend == config.StorageBackendLocal {
		assetPrefix := "/" + strings.Trim(cfg.Storage.LocalBaseURL, "/")
		router.Handle(assetPrefix+"/*", http.StripPrefix(assetPrefix+"/", http.FileServer(http.Dir(cfg.Storage.LocalDir))))
	}
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // conversions can run close to CONVERT_TIMEOUT
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
