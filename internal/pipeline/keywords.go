package pipeline

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/vlm"
)

const minKeywordRunes = 4

var punctuation = regexp.MustCompile(`[^\pL\pN\s]+`)

// Tokenize 去掉标点和重音、转小写，保留长度大于 3 的词，按首次出现的顺序去重。
func Tokenize(text string) []string {
	text = punctuation.ReplaceAllString(text, " ")
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(text),
	)
	if err != nil {
		folded = strings.ToLower(text)
	}

	var out []string
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(folded) {
		if utf8.RuneCountInString(tok) < minKeywordRunes {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// parseKeywordList 解析文本模型返回的逗号分隔列表。
func parseKeywordList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		kw := strings.ToLower(strings.TrimSpace(part))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// KeywordExtractor 从帖子文本和视觉分析中提取关键词。
type KeywordExtractor struct {
	client   vlm.Client
	useLLM   bool
	template string
}

// NewKeywordExtractor 创建关键词提取器。useLLM 为 false 或 client 为 nil 时只用分词器。
func NewKeywordExtractor(client vlm.Client, useLLM bool, template string) *KeywordExtractor {
	return &KeywordExtractor{client: client, useLLM: useLLM && client != nil, template: template}
}

// Extract 返回关键词列表。文本模型失败或输出为空时退回到分词器。
func (k *KeywordExtractor) Extract(ctx context.Context, post model.Post, analysis model.StructuredAnalysis) []string {
	if k.useLLM {
		prompt := RenderKeywordPrompt(k.template, post.Text, analysis.VisualSummary, analysis.OCRText)
		out, err := k.client.Generate(ctx, prompt)
		if err != nil {
			log.Warnf("[Keywords] 文本模型提取关键词失败, PostID: %s, 退回分词: %v", post.ID, err)
		} else if kws := parseKeywordList(out); len(kws) > 0 {
			return kws
		} else {
			log.Warnf("[Keywords] 文本模型返回空关键词, PostID: %s, 退回分词", post.ID)
		}
	}
	return Tokenize(strings.Join([]string{post.Text, analysis.VisualSummary, analysis.OCRText}, " "))
}
