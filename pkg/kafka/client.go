// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"meme-guard-go/internal/config"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/tasks"
)

const (
	maxAttempts    = 3
	attemptsTTL    = 24 * time.Hour
	attemptsPrefix = "kafka:attempts:"
)

// TaskProcessor defines the interface for any service that can process a post task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.PostTask) error
}

var producer *kafka.Writer

func brokers(cfg config.KafkaConfig) []string {
	return strings.Split(cfg.Brokers, ",")
}

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// CloseProducer 关闭生产者，刷新未发送的消息。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// ProducePostTask 发送一个帖子审核任务到 Kafka，以帖子 ID 作为消息 key。
func ProducePostTask(ctx context.Context, task tasks.PostTask) error {
	if producer == nil {
		return errors.New("kafka producer not initialized")
	}
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.ID),
		Value: taskBytes,
	})
}

// AttemptsKey 返回记录任务失败次数的 Redis key。
func AttemptsKey(postID string) string {
	return attemptsPrefix + postID
}

// retryBackoff 是同一条消息两次处理之间的等待时间。
var retryBackoff = time.Second

// recordFailure 增加 Redis 中的失败计数并返回累计次数。计数跨进程重启保留，
// 这样崩溃前已经失败过的消息在重新投递后不会从头计数。
func recordFailure(ctx context.Context, rdb *redis.Client, postID string) (int64, error) {
	key := AttemptsKey(postID)
	attempts, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = rdb.Expire(ctx, key, attemptsTTL).Err()
	return attempts, nil
}

// handleMessage 处理一条消息，失败时在原地重试，最多 maxAttempts 次，返回是否应提交 offset。
// 只有 ctx 取消时返回 false，让 Kafka 在下次启动时重投。
func handleMessage(ctx context.Context, value []byte, processor TaskProcessor, rdb *redis.Client) bool {
	var task tasks.PostTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("[Kafka] 无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}
	if err := task.Validate(); err != nil {
		log.Errorf("[Kafka] 帖子任务缺少必填字段: %v, value: %s", err, string(value))
		return true
	}

	log.Infof("[Kafka] 开始处理帖子任务: PostID=%s", task.ID)
	var local int64
	for {
		err := processor.Process(ctx, task)
		if err == nil {
			log.Infof("[Kafka] 帖子任务处理成功: PostID=%s", task.ID)
			_ = rdb.Del(ctx, AttemptsKey(task.ID)).Err()
			return true
		}
		if errors.Is(err, tasks.ErrNonRetryable) {
			log.Warnf("[Kafka] 帖子任务无法处理, 丢弃: PostID=%s, Error: %v", task.ID, err)
			_ = rdb.Del(ctx, AttemptsKey(task.ID)).Err()
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		local++
		attempts, rerr := recordFailure(ctx, rdb, task.ID)
		if rerr != nil {
			log.Errorf("[Kafka] 记录失败次数失败, PostID: %s, Error: %v", task.ID, rerr)
			attempts = local
		}
		if attempts < local {
			attempts = local
		}
		log.Errorf("[Kafka] 处理帖子任务失败(第 %d 次): PostID=%s, Error: %v", attempts, task.ID, err)
		if attempts >= maxAttempts {
			log.Errorf("[Kafka] 帖子任务多次失败(>=%d)，提交 offset 终止重试: PostID=%s", maxAttempts, task.ID)
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(retryBackoff):
		}
	}
}

// StartConsumer 启动消费循环，直到 ctx 取消或读取失败。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者收到停止信号")
			} else {
				log.Error("从 Kafka 读取消息失败", err)
			}
			return
		}
		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		// 停机时不提交 offset，让 Kafka 重投
		if handleMessage(ctx, m.Value, processor, rdb) {
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}
}

// PublishAll 把一批任务依次发送到 Kafka，返回成功发送的数量。
func PublishAll(ctx context.Context, batch []tasks.PostTask) (int, error) {
	for i, task := range batch {
		if err := ProducePostTask(ctx, task); err != nil {
			return i, fmt.Errorf("发送帖子 %s 失败: %w", task.ID, err)
		}
	}
	return len(batch), nil
}
