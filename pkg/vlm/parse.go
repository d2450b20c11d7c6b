package vlm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"meme-guard-go/internal/model"
)

const summaryNotFound = "Summary not found"

// ParseAnalysis 解析 response 字段中的 JSON 负载。模型常把布尔值写成字符串，
// 因此标志位通过 cast 宽松转换；缺失的字段取默认值。
func ParseAnalysis(payload string) (model.StructuredAnalysis, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return model.StructuredAnalysis{}, ErrMalformedOutput
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return model.StructuredAnalysis{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if raw == nil {
		// 负载为 JSON null
		return model.StructuredAnalysis{}, ErrMalformedOutput
	}

	analysis := model.StructuredAnalysis{
		VisualSummary: summaryNotFound,
		Risks:         make(map[model.RiskName]model.RiskIndicator, len(model.RiskNames)),
	}
	if v, ok := raw["visual_summary"]; ok && v != nil {
		analysis.VisualSummary = cast.ToString(v)
	}
	if v, ok := raw["ocr_text"]; ok && v != nil {
		analysis.OCRText = cast.ToString(v)
	}
	for _, name := range model.RiskNames {
		analysis.Risks[name] = model.RiskIndicator{
			Flag:   cast.ToBool(raw[name.FlagKey()]),
			Reason: cast.ToString(raw[name.ReasonKey()]),
		}
	}
	return analysis, nil
}
