package pipeline

import (
	"os"
	"strings"

	"meme-guard-go/pkg/log"
)

// DefaultAnalysisPrompt 在没有可用的提示词文件时使用。
const DefaultAnalysisPrompt = `Analyze this image for content moderation. Respond with a JSON object containing "visual_summary", "ocr_text", and for each of sarcastic, harmful, offensive, violent, sexual, explicit, terrorist, extremist, child_exploitation, hate_speech, spam, racist_or_racial_slur the fields "is_<name>" (boolean) and "is_<name>_reason" (string).`

// DefaultKeywordPrompt 是关键词提取的默认模板。
const DefaultKeywordPrompt = `Post text: {post_text}
Image summary: {visual_summary}
Text inside the image: {ocr_text}
List the keywords of this post, comma separated.`

// LoadPrompt 返回第一个存在且非空的候选文件内容，全部不可用时返回 fallback。
func LoadPrompt(fallback string, candidates ...string) string {
	for _, path := range candidates {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if prompt := strings.TrimSpace(string(data)); prompt != "" {
			log.Infof("[Prompt] 使用提示词文件: %s", path)
			return prompt
		}
	}
	log.Warn("[Prompt] 未找到提示词文件，使用内置默认提示词")
	return fallback
}

// RenderKeywordPrompt 填充关键词模板中的占位符。
func RenderKeywordPrompt(template, postText, visualSummary, ocrText string) string {
	return strings.NewReplacer(
		"{post_text}", postText,
		"{visual_summary}", visualSummary,
		"{ocr_text}", ocrText,
	).Replace(template)
}
