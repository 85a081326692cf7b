package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eboto/config"
	"eboto/internal/handler"
	"eboto/internal/outbox"
	"eboto/internal/redis"
	"eboto/internal/repository"
	"eboto/internal/server"
	"eboto/internal/services"
	"eboto/internal/storage"
	"eboto/internal/websocket"
	"eboto/pkg/database"
	"eboto/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	log := logger.New(mode)
	logger.SetGlobalLogger(log)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Logger.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.Logger.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Logger.Fatal("database migration failed", zap.Error(err))
	}

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redis.Ping(ctx, redisClient); err != nil {
		log.Logger.Warn("redis unavailable at startup", zap.Error(err))
	}

	var cache services.TallyCache
	if cfg.TallyCacheTTL() > 0 {
		cache = redis.NewTallyCache(redisClient, cfg.TallyCacheTTL())
	}

	var archive services.ResultArchive
	var media services.MediaSigner
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PresignTTL: time.Duration(cfg.S3PresignTTL) * time.Second,
		})
		if err != nil {
			log.Logger.Fatal("s3 client setup failed", zap.Error(err))
		}
		archive = s3Client
		media = s3Client
	} else {
		log.Logger.Info("S3_BUCKET not set; exports and logo uploads are disabled")
	}

	store := repository.NewStore(db)
	authService := services.NewAuthService(cfg)
	electionService := services.NewElectionService(store, loc)
	if media != nil {
		electionService.WithMedia(media)
	}
	if cache != nil {
		electionService.WithTallyCache(cache)
	}
	tallyService := services.NewTallyService(store, cache, loc).WithBaseURL(cfg.BaseURL)
	ballotService := services.NewBallotService(store, cache, cfg, loc)
	lifecycleService := services.NewLifecycleService(store, tallyService, cfg, loc)
	exportService := services.NewExportService(tallyService, archive)

	publisher := redis.NewPublisher(redisClient)
	outbox.NewRunner(outbox.DefaultProcessor(store.Outbox(), publisher)).Start(ctx)

	hub := websocket.NewHub()
	go hub.Run(ctx)
	bridge := websocket.NewRedisBridge(redis.NewSubscriber(redisClient), hub)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			log.Logger.Error("realtime bridge stopped", zap.Error(err))
		}
	}()

	limitCfg := redis.DefaultRateLimitConfig()
	limitCfg.BallotLimit = cfg.BallotRateLimit

	srv := server.New(cfg, log)
	srv.SetupRoutes(&server.Handlers{
		Election: handler.NewElectionHandler(electionService),
		Ballot:   handler.NewBallotHandler(electionService, ballotService),
		Result:   handler.NewResultHandler(tallyService),
		Manage:   handler.NewManageHandler(electionService, exportService),
		Cron:     handler.NewCronHandler(lifecycleService),
		Realtime: websocket.NewHandler(authService, tallyService, hub),
	}, server.Guards{
		Auth:      authService,
		Scheduler: services.NewSchedulerVerifier(cfg),
		Limiter:   redis.NewRateLimiter(redisClient, limitCfg),
	})

	if err := srv.Start(ctx); err != nil {
		log.Logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}
