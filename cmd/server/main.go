package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"labstock/internal/config"
	"labstock/internal/model"
	"labstock/internal/queue"
	"labstock/internal/router"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load", zap.Error(err))
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.Chemical{},
		&model.UserRequest{},
		&model.RequestItem{},
		&model.ProcurementOrder{},
		&model.TransitionLog{},
	)
	if err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	outbox := queue.NewOutbox(rdb, cfg.TransitionStream, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relay := queue.NewRelay(rdb, producer, cfg.TransitionStream, cfg.TransitionGroup, cfg.TransitionConsumer, logger)
	go relay.Run(ctx)

	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, db, logger)
	defer consumer.Close()
	go consumer.Run(ctx)

	r := gin.Default()
	router.Setup(r, db, rdb, outbox, cfg, logger)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}
