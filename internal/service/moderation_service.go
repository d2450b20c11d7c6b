// Package service 提供了审核决策、重新训练和特征检索的业务逻辑。
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"meme-guard-go/internal/engine"
	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/log"
)

// ErrSearchDisabled 表示没有配置 Elasticsearch。
var ErrSearchDisabled = errors.New("feature search is disabled")

// ModerationService 接口定义了审核相关操作。
type ModerationService interface {
	Decide(ctx context.Context, postID string) model.Decision
	Retrain(ctx context.Context) error
	SearchFeatures(ctx context.Context, query string, size int) ([]model.SearchHit, error)
}

type moderationService struct {
	engine    *engine.Engine
	esClient  *elasticsearch.Client
	indexName string
}

// NewModerationService 创建一个新的 ModerationService 实例。esClient 为 nil 时检索不可用。
func NewModerationService(eng *engine.Engine, esClient *elasticsearch.Client, indexName string) ModerationService {
	return &moderationService{
		engine:    eng,
		esClient:  esClient,
		indexName: indexName,
	}
}

func (s *moderationService) Decide(ctx context.Context, postID string) model.Decision {
	d := s.engine.Serve(ctx, postID)
	if d.Score != nil {
		log.Infof("Post %s: Action=%s (Score=%.4f)", postID, d.Action, *d.Score)
	} else {
		log.Infof("Post %s: Action=%s", postID, d.Action)
	}
	return d
}

func (s *moderationService) Retrain(ctx context.Context) error {
	log.Info("[ModerationService] 开始重新训练模型")
	if _, err := s.engine.Train(ctx); err != nil {
		return err
	}
	log.Info("[ModerationService] 模型重新训练完成")
	return nil
}

// SearchFeatures 在帖子文本、关键词、视觉摘要和 OCR 文本上做全文检索。
func (s *moderationService) SearchFeatures(ctx context.Context, query string, size int) ([]model.SearchHit, error) {
	if s.esClient == nil {
		return nil, ErrSearchDisabled
	}
	log.Infof("[ModerationService] 开始检索特征, query: '%s', size: %d", query, size)

	var buf bytes.Buffer
	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"post_text^2", "keywords^2", "visual_summary", "ocr_text"},
			},
		},
		"size": size,
	}
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.indexName),
		s.esClient.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[ModerationService] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[ModerationService] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.FeatureDocument `json:"_source"`
				Score  float64               `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]model.SearchHit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		hits = append(hits, model.SearchHit{
			PostID:        h.Source.PostID,
			PostText:      h.Source.PostText,
			VisualSummary: h.Source.VisualSummary,
			Tags:          h.Source.Tags,
			Score:         h.Score,
		})
	}
	log.Infof("[ModerationService] 检索完成, 返回 %d 条结果", len(hits))
	return hits, nil
}
