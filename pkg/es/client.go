// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"meme-guard-go/internal/config"
	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/log"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端并确保特征索引存在。
func InitES(esCfg config.ElasticsearchConfig) error {
	client, err := NewClient(esCfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(client, esCfg.IndexName)
}

// NewClient 按配置创建客户端，不做任何网络请求。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return elasticsearch.NewClient(cfg)
}

const featureMapping = `{
	"mappings": {
		"properties": {
			"post_id": { "type": "keyword" },
			"post_text": { "type": "text" },
			"keywords": { "type": "keyword" },
			"visual_summary": { "type": "text" },
			"ocr_text": { "type": "text" },
			"flags": { "type": "keyword" },
			"tags": { "type": "keyword" },
			"run_id": { "type": "keyword" }
		}
	}
}`

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(client *elasticsearch.Client, indexName string) error {
	res, err := client.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithBody(strings.NewReader(featureMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// FeatureIndex 把特征行写入 Elasticsearch，实现 repository.FeatureIndexer。
type FeatureIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewFeatureIndex 创建一个写入 indexName 的 FeatureIndex。
func NewFeatureIndex(client *elasticsearch.Client, indexName string) *FeatureIndex {
	return &FeatureIndex{client: client, indexName: indexName}
}

// DocumentID 返回文档 ID。同一运行内同一帖子只保留最后一次写入。
func DocumentID(runID, postID string) string {
	return runID + "_" + postID
}

// IndexFeatures 用一次 bulk 请求索引整批特征行。
func (f *FeatureIndex) IndexFeatures(ctx context.Context, runID string, rows []model.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, row := range rows {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": f.indexName, "_id": DocumentID(runID, row.PostID)},
		}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(model.NewFeatureDocument(runID, row)); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Body:    &body,
		Refresh: "true",
	}
	res, err := req.Do(ctx, f.client)
	if err != nil {
		return fmt.Errorf("bulk index features: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("索引特征到 Elasticsearch 出错: %s, body: %s", res.Status(), string(bodyBytes))
		return errors.New("failed to index features")
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return errors.New("bulk index reported item errors")
	}
	log.Infof("[ES] 已索引 %d 条特征到 '%s'", len(rows), f.indexName)
	return nil
}
