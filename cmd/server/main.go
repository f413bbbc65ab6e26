package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/config"
	"github.com/adrianoneco/app-chatapp/internal/database"
	"github.com/adrianoneco/app-chatapp/internal/handler"
	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/repository"
	"github.com/adrianoneco/app-chatapp/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}
	log.Info("migrations applied")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	uploadSvc := service.NewUploadService(cfg.MediaDir, cfg.AvatarDir, int64(cfg.UploadMaxBytes))
	if err := uploadSvc.EnsureDirs(); err != nil {
		log.Fatal("create upload directories", zap.Error(err))
	}

	// Realtime
	wsHub := service.NewWSHub()
	go wsHub.Run()

	var publisher service.Publisher = wsHub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("parse REDIS_URL", zap.Error(err))
		}
		opts.ContextTimeoutEnabled = true
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		bridge := service.NewRedisBridge(rdb, wsHub)
		go bridge.Run(ctx)
		publisher = bridge
		log.Info("realtime fan-out via redis enabled")
	}

	var notifier service.Notifier
	discord, err := service.NewDiscordNotifier(cfg.DiscordWebhookURL)
	if err != nil {
		log.Warn("discord notifications disabled", zap.Error(err))
	} else if discord != nil {
		notifier = discord
	}

	// Services
	authSvc := service.NewAuthService(userRepo, sessionRepo, cfg.JWTSecret, cfg.GlobalAPIKey)
	userSvc := service.NewUserService(userRepo, sessionRepo, uploadSvc)
	channelSvc := service.NewChannelService(channelRepo)
	convSvc := service.NewConversationService(convRepo, msgRepo, userRepo, publisher, notifier)
	msgSvc := service.NewMessageService(convRepo, msgRepo, reactionRepo, publisher, notifier)
	corrector := service.NewGroqCorrector(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel)

	app := handler.NewApp(handler.Deps{
		DB:                db,
		Auth:              authSvc,
		Users:             userSvc,
		Channels:          channelSvc,
		Conversations:     convSvc,
		Messages:          msgSvc,
		Uploads:           uploadSvc,
		Corrector:         corrector,
		Hub:               wsHub,
		UserCount:         userRepo,
		ConversationCount: convRepo,
		CORSOrigins:       cfg.CORSOrigins,
		RequestLog:        true,
	})

	// Expired refresh tokens
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := sessionRepo.CleanupExpired(ctx)
				if err != nil {
					log.Warn("cleanup refresh tokens", zap.Error(err))
				} else if n > 0 {
					log.Info("expired refresh tokens removed", zap.Int64("count", n))
				}
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	log.Info("chat console backend running", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	<-quit
	log.Info("shutting down")
	cancel()
	_ = app.ShutdownWithTimeout(5 * time.Second)
	wsHub.Shutdown()
	log.Info("server stopped")
}
