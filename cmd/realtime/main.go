package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mccartheney/food-loop-sub002/internal/api"
	"github.com/mccartheney/food-loop-sub002/internal/cache"
	"github.com/mccartheney/food-loop-sub002/internal/config"
	"github.com/mccartheney/food-loop-sub002/internal/events"
	"github.com/mccartheney/food-loop-sub002/internal/hub"
	"github.com/mccartheney/food-loop-sub002/internal/logger"
	"github.com/mccartheney/food-loop-sub002/internal/metrics"
	"github.com/mccartheney/food-loop-sub002/internal/middleware"
	"github.com/mccartheney/food-loop-sub002/internal/repository"
	"github.com/mccartheney/food-loop-sub002/internal/service"
	"github.com/mccartheney/food-loop-sub002/internal/ws"
)

func main() {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{Development: cfg.App.Development})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// mongo
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoTimeout)
	defer cancel()
	mc, err := repository.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	chatRepo := repository.NewChatRepo(mc.Database(cfg.Mongo.ChatDatabase))
	presenceRepo := repository.NewPresenceRepo(mc.Database(cfg.Mongo.ChatDatabase))
	notifRepo := repository.NewNotificationRepo(mc.Database(cfg.Mongo.NotifyDatabase))

	// redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	liveCache := cache.NewStore(rdb, cfg.Redis.Prefix)

	// kafka
	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MessageTopic)
	defer func() { _ = producer.Close() }()

	// services
	chatSvc := service.NewChatService(chatRepo, chatRepo, producer, cfg.Chat, log)
	presenceSvc := service.NewPresenceService(presenceRepo, liveCache, cfg.TypingTTL, log)
	notifSvc := service.NewNotificationService(notifRepo, liveCache, service.NotificationConfig{
		DefaultPageSize: cfg.Chat.DefaultPageSize,
		MaxPageSize:     cfg.Chat.MaxPageSize,
	}, log)

	// realtime hub with cross-instance fan-out over redis pub/sub
	h := hub.NewHub(log)
	h.SetPublisher(liveCache.PublishBroadcast)
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	sub := liveCache.SubscribeBroadcast(subCtx)
	go func() {
		for msg := range sub.Channel() {
			h.HandleRemote([]byte(msg.Payload))
		}
	}()

	// offline recipients of a sent message get a stored notification
	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.MessageTopic, cfg.Kafka.GroupID,
		func(ctx context.Context, ev events.MessageSentEvent) error {
			return notifSvc.NotifyMessageReceived(ctx, &ev.Message, ev.Participants)
		}, log)
	go func() {
		if err := consumer.Start(subCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("kafka consumer stopped: %v", err)
		}
	}()

	gateway := ws.NewGateway(h, chatSvc, presenceSvc, cfg.JWT.Secret, log)
	limiter := middleware.NewRateLimiter(rdb, cfg.Redis.Prefix, cfg.RateLimit.Limit, cfg.RateLimitWindow)
	srv := api.NewServer(cfg, chatSvc, presenceSvc, notifSvc, h, gateway, limiter, log)

	go func() {
		log.Infof("listening on :%s", cfg.App.Port)
		if err := srv.Listen(":" + cfg.App.Port); err != nil {
			log.Fatalf("listen failed: %v", err)
		}
	}()

	metricsSrv := &http.Server{Addr: ":" + cfg.App.MetricsPort, Handler: metrics.Handler()}
	go func() {
		log.Infof("metrics on :%s", cfg.App.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutdown requested")

	subCancel()
	_ = sub.Close()
	_ = consumer.Close()

	timeoutCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown()
	_ = metricsSrv.Shutdown(timeoutCtx)
	_ = rdb.Close()
	_ = mc.Disconnect(timeoutCtx)
	log.Info("shutdown completed")
}
