package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rural_skills_service/internal/messaging/app"
	"rural_skills_service/internal/messaging/repository"
	"rural_skills_service/internal/messaging/router"
	"rural_skills_service/pkg/config"
	"rural_skills_service/pkg/database"
	"rural_skills_service/pkg/logger"
	testtool "rural_skills_service/pkg/test_tool"
	"rural_skills_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.MessagingService, config.EnvConfig.MessagingServiceLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.Messaging](config.EnvConfig.MessagingService, config.EnvConfig.MessagingServiceYAMLPath).WithDefaults()
	token.SetSecret(cfg.JWTSecret)

	if !config.IsProduction() {
		logger.Log.EnableDebugMode()
	}
	testtool.StartPprof()

	// 1. 建立 Mongo 連線 (messages / profiles)
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("host", cfg.MongoSQL.Host),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	if err := repository.EnsureMessageIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Warn("create message indexes failed", zap.Error(err))
	}

	// 2. 建立 Redis 連線 (change feed / profile cache)
	redisClient, err := database.NewRedisClient(database.Connection{
		ConnectStr:    cfg.Redis.Addr,
		RetryCount:    cfg.MongoSQL.RetryCount,
		RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
	}, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis err", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer redisClient.Close()

	// 3. 建立 MinIO 連線 (audio)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval) * time.Second,
	})
	if err != nil {
		logger.Log.Fatal("connect minio err", zap.String("endpoint", cfg.MinIO.Endpoint), zap.Error(err))
	}

	// 4. 初始化 Repository
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	profileRepo := repository.NewCachedProfileRepository(
		repository.NewMongoProfileRepository(mongo.Database),
		database.NewRedisRepository[string](redisClient, "profile:name:"),
		cfg.View.ProfileCacheTTL,
	)
	feed := repository.NewRedisChangeFeed(redisClient, cfg.Redis.ChangeChannel)
	logSource := repository.NewLiveLog(msgRepo, feed)
	media := repository.NewMinIOMediaStore(minioClient, cfg.MinIO.PublicBaseURL)

	// 5. 初始化 UseCases
	agg := app.NewAggregator(msgRepo, profileRepo, feed, cfg.View.ReadMarkParallel)
	views := app.NewViewService(logSource, msgRepo, profileRepo, feed, cfg.View.ReadMarkParallel, cfg.View.WriteTimeout)

	// 6. 啟動 Fiber
	r := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Upload.MaxAudioBytes) + 1<<20,
	})
	if err := os.MkdirAll(config.EnvConfig.MessagingServiceLogPath, 0o755); err != nil {
		log.Fatalf("Failed to create log dir: %v", err)
	}
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.MessagingServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		app.NewMessagingWebsocketHandler(agg, views),
		app.NewMessagingHTTPHandler(agg, media, cfg.Upload.MaxAudioBytes),
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("shutting down messaging service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("shutdown failed", zap.Error(err))
		}
	}()

	// Listen
	port := ":" + cfg.Port
	logger.Log.Info("Messaging Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}
