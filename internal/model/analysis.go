package model

// ErrorSentinel 是视觉分析失败时所有文本字段和原因字段的取值。
const ErrorSentinel = "ERROR"

// RiskName 是 VLM 输出的风险指标名称，对应 JSON 中的 is_<name> / is_<name>_reason。
type RiskName string

const (
	RiskSarcastic          RiskName = "sarcastic"
	RiskHarmful            RiskName = "harmful"
	RiskOffensive          RiskName = "offensive"
	RiskViolent            RiskName = "violent"
	RiskSexual             RiskName = "sexual"
	RiskExplicit           RiskName = "explicit"
	RiskTerrorist          RiskName = "terrorist"
	RiskExtremist          RiskName = "extremist"
	RiskChildExploitation  RiskName = "child_exploitation"
	RiskHateSpeech         RiskName = "hate_speech"
	RiskSpam               RiskName = "spam"
	RiskRacistOrRacialSlur RiskName = "racist_or_racial_slur"
)

// RiskNames 是固定的风险指标集合，顺序即离线日志中的列顺序。
var RiskNames = []RiskName{
	RiskSarcastic,
	RiskHarmful,
	RiskOffensive,
	RiskViolent,
	RiskSexual,
	RiskExplicit,
	RiskTerrorist,
	RiskExtremist,
	RiskChildExploitation,
	RiskHateSpeech,
	RiskSpam,
	RiskRacistOrRacialSlur,
}

// FlagKey 返回该指标在 VLM 输出中的布尔字段名。
func (r RiskName) FlagKey() string { return "is_" + string(r) }

// ReasonKey 返回该指标在 VLM 输出中的原因字段名。
func (r RiskName) ReasonKey() string { return "is_" + string(r) + "_reason" }

// RiskIndicator 是单个风险指标的判断结果。
type RiskIndicator struct {
	Flag   bool   `json:"flag"`
	Reason string `json:"reason"`
}

// StructuredAnalysis 是视觉模型对一张图片的结构化分析结果。
type StructuredAnalysis struct {
	VisualSummary string                     `json:"visual_summary"`
	OCRText       string                     `json:"ocr_text"`
	Risks         map[RiskName]RiskIndicator `json:"risks"`
}

// ErrorAnalysis 返回 VLM 调用或解析失败时使用的哨兵分析结果。
func ErrorAnalysis() StructuredAnalysis {
	risks := make(map[RiskName]RiskIndicator, len(RiskNames))
	for _, name := range RiskNames {
		risks[name] = RiskIndicator{Flag: false, Reason: ErrorSentinel}
	}
	return StructuredAnalysis{
		VisualSummary: ErrorSentinel,
		OCRText:       ErrorSentinel,
		Risks:         risks,
	}
}

// IsError 报告该分析是否为哨兵结果。
func (a StructuredAnalysis) IsError() bool {
	return a.VisualSummary == ErrorSentinel && a.OCRText == ErrorSentinel
}

// Risk 返回指定指标，缺失时为零值。
func (a StructuredAnalysis) Risk(name RiskName) RiskIndicator {
	return a.Risks[name]
}
