package pipeline

import (
	"context"

	"meme-guard-go/internal/model"
	"meme-guard-go/internal/policy"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/metrics"
	"meme-guard-go/pkg/storage"
	"meme-guard-go/pkg/vlm"
)

// Deriver 把一个帖子转换成完整的特征行：视觉分析、关键词、分数、标签。
type Deriver struct {
	images     storage.ImageSource
	vlmClient  vlm.Client
	prompt     string
	keywords   *KeywordExtractor
	scorer     Scorer
	thresholds policy.Thresholds
}

// NewDeriver 创建一个新的 Deriver 实例。
func NewDeriver(
	images storage.ImageSource,
	vlmClient vlm.Client,
	prompt string,
	keywords *KeywordExtractor,
	scorer Scorer,
	thresholds policy.Thresholds,
) *Deriver {
	return &Deriver{
		images:     images,
		vlmClient:  vlmClient,
		prompt:     prompt,
		keywords:   keywords,
		scorer:     scorer,
		thresholds: thresholds,
	}
}

// Derive 不会返回错误：外部调用失败时视觉分析退化为 ERROR 哨兵值。
func (d *Deriver) Derive(ctx context.Context, post model.Post) model.FeatureRow {
	analysis := d.analyze(ctx, post)
	keywords := d.keywords.Extract(ctx, post, analysis)
	scores := d.scorer.Score(keywords)
	tags := policy.Apply(d.thresholds, scores)
	log.Debugf("[Deriver] PostID: %s, 关键词: %v, 分数: %v, 标签: %v", post.ID, keywords, scores, tags)

	return model.FeatureRow{
		PostID:   post.ID,
		PostText: post.Text,
		Keywords: keywords,
		Analysis: analysis,
		Scores:   scores,
		Tags:     tags,
	}
}

func (d *Deriver) analyze(ctx context.Context, post model.Post) model.StructuredAnalysis {
	image, err := d.images.ReadImage(ctx, post.ImageRef)
	if err != nil {
		log.Warnf("[Deriver] 读取图片失败, PostID: %s, Image: %s, Error: %v", post.ID, post.ImageRef, err)
		metrics.DeriveFallbacks.Inc()
		return model.ErrorAnalysis()
	}
	analysis, err := d.vlmClient.Analyze(ctx, image, d.prompt)
	if err != nil {
		log.Warnf("[Deriver] 视觉分析失败, PostID: %s, Error: %v", post.ID, err)
		metrics.DeriveFallbacks.Inc()
		return model.ErrorAnalysis()
	}
	return analysis
}
