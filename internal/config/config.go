// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"meme-guard-go/internal/model"
)

// 全局配置变量，仅供 main 在启动时读取；各组件通过构造函数接收自己需要的配置段。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Data          DataConfig          `mapstructure:"data"`
	Policy        PolicyConfig        `mapstructure:"policy"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Keywords      KeywordsConfig      `mapstructure:"keywords"`
	VLM           VLMConfig           `mapstructure:"vlm"`
	Engine        EngineConfig        `mapstructure:"engine"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Offline       OfflineConfig       `mapstructure:"offline"`
	Online        OnlineConfig        `mapstructure:"online"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DataConfig 描述输入数据的位置。
type DataConfig struct {
	BaseDir     string `mapstructure:"base_dir"`
	TrainFile   string `mapstructure:"train_file"`
	ServeFile   string `mapstructure:"serve_file"`
	Limit       int    `mapstructure:"limit"`
	ImageSource string `mapstructure:"image_source"` // fs 或 minio
}

// PolicyConfig 是各类别的打标阈值，未配置的类别使用 DefaultThreshold。
// Load 之后键已还原为规范类别名（如 Harmful_Content）。
type PolicyConfig struct {
	Thresholds map[string]float64 `mapstructure:"thresholds"`
}

// ScoringConfig 控制占位打分器。
type ScoringConfig struct {
	Seed     uint64   `mapstructure:"seed"`
	Triggers []string `mapstructure:"triggers"`
}

// KeywordsConfig 控制关键词提取是否调用文本模型。
type KeywordsConfig struct {
	UseLLM bool `mapstructure:"use_llm"`
}

// VLMConfig 存储视觉/文本模型服务（Ollama 兼容）的配置。
type VLMConfig struct {
	URL               string        `mapstructure:"url"`
	Model             string        `mapstructure:"model"`
	TextModel         string        `mapstructure:"text_model"`
	PromptFile        string        `mapstructure:"prompt_file"`
	KeywordPromptFile string        `mapstructure:"keyword_prompt_file"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	RateLimit         float64       `mapstructure:"rate_limit"` // 每秒请求数，0 表示不限流
}

// EngineConfig 控制决策引擎的训练。
type EngineConfig struct {
	LabelNoise      float64 `mapstructure:"label_noise"`
	RetrainSchedule string  `mapstructure:"retrain_schedule"` // cron 表达式，空表示只在启动时训练
}

// PipelineConfig 控制批处理并发度。
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// OfflineConfig 选择离线特征日志的后端。
type OfflineConfig struct {
	Backend string `mapstructure:"backend"` // csv 或 sql
	Path    string `mapstructure:"path"`
}

// OnlineConfig 选择在线特征索引的后端。TTL 和 Capacity 为 0 表示不淘汰。
type OnlineConfig struct {
	Backend  string        `mapstructure:"backend"` // memory 或 redis
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("data.base_dir", "./memes_data/hateful_memes")
	v.SetDefault("data.train_file", "dev_seen.jsonl")
	v.SetDefault("data.serve_file", "dev_unseen.jsonl")
	v.SetDefault("data.limit", 10)
	v.SetDefault("data.image_source", "fs")
	v.SetDefault("scoring.seed", 42)
	v.SetDefault("scoring.triggers", []string{"hate", "kill", "attack", "stupid"})
	v.SetDefault("vlm.url", "http://localhost:11434/api/generate")
	v.SetDefault("vlm.model", "llama3.2-vision:11b")
	v.SetDefault("vlm.text_model", "llama3:8b")
	v.SetDefault("vlm.prompt_file", "configs/prompt.txt")
	v.SetDefault("vlm.keyword_prompt_file", "configs/llm_prompt.txt")
	v.SetDefault("vlm.timeout", 30*time.Second)
	v.SetDefault("vlm.max_retries", 1)
	v.SetDefault("vlm.breaker_failures", 5)
	v.SetDefault("vlm.breaker_timeout", 30*time.Second)
	v.SetDefault("engine.label_noise", 0.1)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("offline.backend", "csv")
	v.SetDefault("offline.path", "historical_tags.csv")
	v.SetDefault("online.backend", "memory")
	v.SetDefault("kafka.group_id", "meme-guard-go-consumer")
	v.SetDefault("elasticsearch.index_name", "meme_features")
}

// Load 从指定路径读取 YAML 配置，叠加 MEMEGUARD_ 前缀的环境变量，并校验结果。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MEMEGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	thresholds, err := canonicalThresholds(cfg.Policy.Thresholds)
	if err != nil {
		return cfg, err
	}
	cfg.Policy.Thresholds = thresholds
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// canonicalThresholds 把 viper 转成小写的类别键还原为规范类别名。
func canonicalThresholds(raw map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for name, v := range raw {
		c, ok := model.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown policy category %q", name)
		}
		out[string(c)] = v
	}
	return out, nil
}

// Validate 检查配置中的不变量。
func (c Config) Validate() error {
	for category, threshold := range c.Policy.Thresholds {
		if _, ok := model.ParseCategory(category); !ok {
			return fmt.Errorf("unknown policy category %q", category)
		}
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("policy threshold for %q out of range [0,1]: %v", category, threshold)
		}
	}
	if c.Engine.LabelNoise < 0 || c.Engine.LabelNoise > 1 {
		return fmt.Errorf("engine.label_noise out of range [0,1]: %v", c.Engine.LabelNoise)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	switch c.Offline.Backend {
	case "csv", "sql":
	default:
		return fmt.Errorf("unknown offline backend %q", c.Offline.Backend)
	}
	switch c.Online.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown online backend %q", c.Online.Backend)
	}
	return nil
}

// Init 初始化配置加载，失败时 panic，结果写入 Conf。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
