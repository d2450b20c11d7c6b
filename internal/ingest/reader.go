// Package ingest 读取 JSONL 格式的帖子并过滤掉图片缺失的记录。
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cast"

	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/storage"
)

const maxLineBytes = 4 * 1024 * 1024

// Stats 记录一次读取的统计信息。
type Stats struct {
	Lines         int
	Ingested      int
	MissingImages int
	Malformed     int
}

// 输入中的 id 可能是字符串也可能是数字。
type rawPost struct {
	ID   interface{} `json:"id"`
	Text string      `json:"text"`
	Img  string      `json:"img"`
}

// ReadPosts 读取 path 中最多 limit 行（limit <= 0 表示不限），返回图片存在的帖子。
// 图片缺失或格式错误的行被跳过并计数，不会中断读取。
func ReadPosts(ctx context.Context, path string, limit int, images storage.ImageSource) ([]model.Post, Stats, error) {
	var stats Stats
	log.Infof("[Ingest] 开始读取数据文件: %s", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("打开数据文件失败: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var posts []model.Post
	for scanner.Scan() {
		if limit > 0 && stats.Lines >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Lines++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		post, err := decodePost(line)
		if err != nil {
			stats.Malformed++
			log.Warnf("[Ingest] 第 %d 行解析失败, 跳过: %v", stats.Lines, err)
			continue
		}

		exists, err := images.Exists(ctx, post.ImageRef)
		if err != nil {
			return nil, stats, fmt.Errorf("检查图片 %s 失败: %w", post.ImageRef, err)
		}
		if !exists {
			stats.MissingImages++
			continue
		}
		posts = append(posts, post)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("读取数据文件失败: %w", err)
	}

	stats.Ingested = len(posts)
	log.Infof("[Ingest] 读取完成: %d 条帖子入库, %d 条图片缺失, %d 条格式错误", stats.Ingested, stats.MissingImages, stats.Malformed)
	return posts, stats, nil
}

func decodePost(line []byte) (model.Post, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var raw rawPost
	if err := dec.Decode(&raw); err != nil {
		return model.Post{}, err
	}
	var id string
	switch v := raw.ID.(type) {
	case json.Number:
		id = v.String()
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return model.Post{}, fmt.Errorf("invalid id: %w", err)
		}
		id = s
	}
	if id == "" {
		return model.Post{}, fmt.Errorf("missing id")
	}
	if raw.Img == "" {
		return model.Post{}, fmt.Errorf("post %s has no img", id)
	}
	return model.Post{ID: id, Text: raw.Text, ImageRef: raw.Img}, nil
}
