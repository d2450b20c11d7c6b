// Package app 按配置组装流水线、存储和决策引擎，供 server 和 pipeline 两个入口共用。
package app

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"meme-guard-go/internal/config"
	"meme-guard-go/internal/engine"
	"meme-guard-go/internal/pipeline"
	"meme-guard-go/internal/policy"
	"meme-guard-go/internal/repository"
	"meme-guard-go/pkg/classifier"
	"meme-guard-go/pkg/database"
	"meme-guard-go/pkg/es"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/storage"
	"meme-guard-go/pkg/vlm"
)

// App 持有一次运行所需的全部组件。
type App struct {
	Config    config.Config
	RunID     string
	Images    storage.ImageSource
	Store     *repository.FeatureStore
	Engine    *engine.Engine
	Processor *pipeline.Processor
	Runner    *pipeline.Runner
	ESClient  *elasticsearch.Client

	redis *redis.Client
}

// New 按配置创建所有组件。外部服务（MySQL、Redis、MinIO、Elasticsearch）只在配置选中时连接。
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg, RunID: uuid.NewString()}
	log.Infof("[App] 初始化组件, RunID: %s", a.RunID)

	thresholds, err := policy.NewThresholds(cfg.Policy.Thresholds)
	if err != nil {
		return nil, err
	}

	// 1. 图片数据源
	switch cfg.Data.ImageSource {
	case "minio":
		storage.InitMinIO(cfg.MinIO)
		a.Images = storage.NewMinioSource(storage.MinioClient, cfg.MinIO.BucketName)
	default:
		a.Images = storage.NewFileSource(cfg.Data.BaseDir)
	}

	// 2. 离线日志
	var offline repository.OfflineLog
	switch cfg.Offline.Backend {
	case "sql":
		db, err := database.OpenSQL(cfg.Database.MySQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("连接离线日志数据库失败: %w", err)
		}
		sqlLog, err := repository.NewSQLOfflineLog(db, a.RunID)
		if err != nil {
			return nil, err
		}
		offline = sqlLog
	default:
		offline = repository.NewCSVOfflineLog(cfg.Offline.Path)
	}

	// 3. 在线索引
	var online repository.OnlineIndex
	switch cfg.Online.Backend {
	case "redis":
		rdb, err := a.RedisClient(ctx)
		if err != nil {
			return nil, err
		}
		online = repository.NewRedisOnlineIndex(rdb, cfg.Online.TTL)
	default:
		online = repository.NewMemoryOnlineIndex(cfg.Online.Capacity, cfg.Online.TTL)
	}

	// 4. 特征检索
	var indexer repository.FeatureIndexer
	if cfg.Elasticsearch.Enabled {
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			return nil, fmt.Errorf("es 初始化失败: %w", err)
		}
		a.ESClient = es.ESClient
		indexer = es.NewFeatureIndex(a.ESClient, cfg.Elasticsearch.IndexName)
	}
	a.Store = repository.NewFeatureStore(offline, online, indexer, a.RunID)

	// 5. 模型客户端与特征派生
	vlmClient := vlm.NewClient(cfg.VLM)
	deriver := pipeline.NewDeriver(
		a.Images,
		vlmClient,
		pipeline.LoadPrompt(pipeline.DefaultAnalysisPrompt, cfg.VLM.PromptFile, "prompt.txt"),
		pipeline.NewKeywordExtractor(vlmClient, cfg.Keywords.UseLLM,
			pipeline.LoadPrompt(pipeline.DefaultKeywordPrompt, cfg.VLM.KeywordPromptFile, "llm_prompt.txt")),
		pipeline.NewHashScorer(cfg.Scoring.Seed, cfg.Scoring.Triggers),
		thresholds,
	)

	// 6. 决策引擎与流水线
	a.Engine = engine.NewEngine(a.Store.Offline(), a.Store.Online(), classifier.NewLogisticRegression(),
		engine.NewNoisyOracle(cfg.Engine.LabelNoise, cfg.Scoring.Seed))
	a.Processor = pipeline.NewProcessor(deriver, a.Store, cfg.Pipeline.Workers)
	a.Runner = pipeline.NewRunner(cfg.Data, a.Images, a.Processor, a.Store, a.Engine, a.RunID)
	return a, nil
}

// RedisClient 返回共享的 Redis 客户端，首次调用时建立连接。
func (a *App) RedisClient(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	rdb, err := database.NewRedis(ctx, a.Config.Database.Redis)
	if err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	a.redis = rdb
	return rdb, nil
}

// Close 释放持有的连接。
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
