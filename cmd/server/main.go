// Package main 是审核服务的入口：HTTP 决策接口、指标暴露和可选的 Kafka 流式消费。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meme-guard-go/internal/app"
	"meme-guard-go/internal/config"
	"meme-guard-go/internal/engine"
	"meme-guard-go/internal/handler"
	"meme-guard-go/internal/middleware"
	"meme-guard-go/internal/service"
	"meme-guard-go/pkg/kafka"
	"meme-guard-go/pkg/log"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	configPath := "./configs/config.yaml"
	if p := os.Getenv("MEMEGUARD_CONFIG"); p != "" {
		configPath = p
	}

	// 1. 初始化配置
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 组装存储、流水线和决策引擎
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("初始化组件失败", err)
	}
	defer a.Close()

	// 4. 用已有的离线日志训练一次，没有数据时使用规则兜底
	if _, err := a.Engine.Train(ctx); err != nil && !errors.Is(err, engine.ErrNoTrainingData) {
		log.Warnf("启动时训练失败, 使用规则兜底: %v", err)
	}

	if cfg.Engine.RetrainSchedule != "" {
		scheduler, err := engine.NewRetrainScheduler(ctx, a.Engine, cfg.Engine.RetrainSchedule)
		if err != nil {
			log.Fatal("初始化定时训练失败", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// 5. 启动后台 Kafka 消费者
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		rdb, err := a.RedisClient(ctx)
		if err != nil {
			log.Fatal("Kafka 消费者需要 Redis", err)
		}
		go func() {
			defer close(consumerDone)
			kafka.StartConsumer(ctx, cfg.Kafka, a.Processor, rdb)
		}()
	} else {
		close(consumerDone)
	}

	// 6. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	moderationService := service.NewModerationService(a.Engine, a.ESClient, cfg.Elasticsearch.IndexName)
	handler.NewModerationHandler(moderationService).Register(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	<-ctx.Done()
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("等待 Kafka 消费者退出超时")
	}
	log.Info("服务已优雅关闭")
}
