package agents

import (
	"context"
	"errors"
	"fmt"

	"adsdash/agent-app/tools"
)

type CopywritingParams struct {
	ProductName         string `json:"product_name,omitempty" jsonschema_description:"Product or promotion the copy is for"`
	Tone                string `json:"tone,omitempty"`
	TargetAudience      string `json:"target_audience,omitempty"`
	CampaignObjective   string `json:"campaign_objective,omitempty"`
	SpecialRequirements string `json:"special_requirements,omitempty"`
}

type AdCopyVariant struct {
	Headline        string `json:"headline" validate:"required" jsonschema:"minLength=1" jsonschema_description:"廣告標題（25-40字）"`
	Body            string `json:"body" validate:"required" jsonschema:"minLength=1" jsonschema_description:"主要文案（90-125字）"`
	CTA             string `json:"cta" validate:"required" jsonschema:"minLength=1" jsonschema_description:"行動呼籲"`
	Tone            string `json:"tone,omitempty" jsonschema_description:"語氣風格"`
	TargetAudience  string `json:"target_audience,omitempty" jsonschema_description:"目標受眾描述"`
	KeyMessage      string `json:"key_message,omitempty" jsonschema_description:"核心訊息"`
	EmotionalAppeal string `json:"emotional_appeal,omitempty" jsonschema_description:"情感訴求點"`
	Differentiation string `json:"differentiation,omitempty" jsonschema_description:"差異化重點"`
}

type CopywritingResult struct {
	Variants              []AdCopyVariant `json:"variants" validate:"min=3,max=5,dive" jsonschema:"minItems=3,maxItems=5"`
	StrategyExplanation   string          `json:"strategy_explanation,omitempty" jsonschema_description:"整體策略說明"`
	ABTestSuggestions     []string        `json:"ab_test_suggestions,omitempty"`
	OptimizationTips      []string        `json:"optimization_tips,omitempty"`
	PerformancePrediction string          `json:"performance_prediction,omitempty"`
	ComplianceCheck       string          `json:"compliance_check,omitempty" jsonschema_description:"是否符合 Meta 廣告政策"`
}

var Copywriting = &Definition[CopywritingParams, CopywritingResult]{
	AgentName: "copywriting",
	Summary:   "Generates 3-5 Meta ad copy variants grounded in past performance and brand voice.",
	Tier:      Balanced,
	System: `你是{{brand_name}}的資深廣告文案策略師，熟悉 Meta 廣告的文案規範。
先用工具了解高效文案、受眾、品牌語氣與季節主題，再產出 3 到 5 組風格不同的文案變體。
每組變體都要有標題、主文案與行動呼籲，不得誇大療效或使用絕對化用語。以繁體中文回答。`,
	Prompt: `請為「{{product_name}}」撰寫 Meta 廣告文案。
語氣：{{tone}}
目標受眾：{{target_audience}}
活動目標：{{campaign_objective}}
特殊要求：{{special_requirements}}

請說明整體策略、A/B 測試建議、優化建議、表現預測與合規檢查。`,
	Tools: []string{
		"get_top_performing_copy", "get_audience_insights", "get_brand_voice_guidelines",
		"analyze_competitor_messaging", "get_seasonal_themes",
	},
	Prepare: func(p *CopywritingParams, _ *tools.Settings) {
		if p.ProductName == "" {
			p.ProductName = "品牌主打商品"
		}
		if p.Tone == "" {
			p.Tone = "溫暖親切"
		}
		if p.TargetAudience == "" {
			p.TargetAudience = "依數據推斷"
		}
		if p.CampaignObjective == "" {
			p.CampaignObjective = "提升購買轉換"
		}
		if p.SpecialRequirements == "" {
			p.SpecialRequirements = "無"
		}
	},
	Warn: func(p CopywritingParams) []string {
		var w []string
		if p.ProductName == "品牌主打商品" {
			w = append(w, "未指定產品名稱，文案將以品牌整體為主")
		}
		if p.TargetAudience == "依數據推斷" {
			w = append(w, "未指定目標受眾，將依歷史數據推斷")
		}
		return w
	},
}

type ImagePromptParams struct {
	ImageType           string `json:"image_type,omitempty" jsonschema_description:"產品特寫、生活場景、品牌故事等"`
	StylePreference     string `json:"style_preference,omitempty" validate:"omitempty,oneof=現代簡約 溫暖自然 時尚潮流 傳統文化" jsonschema:"enum=現代簡約,enum=溫暖自然,enum=時尚潮流,enum=傳統文化"`
	TargetAudience      string `json:"target_audience,omitempty"`
	SpecialRequirements string `json:"special_requirements,omitempty"`
	ImageSize           string `json:"image_size,omitempty" validate:"omitempty,oneof=1024x1024 1792x1024 1024x1792" jsonschema:"enum=1024x1024,enum=1792x1024,enum=1024x1792"`
}

type ImagePrompt struct {
	MainPrompt         string   `json:"main_prompt" validate:"min=50,max=500" jsonschema:"minLength=50,maxLength=500" jsonschema_description:"英文提示詞"`
	ChineseDescription string   `json:"chinese_description" validate:"min=20,max=200" jsonschema:"minLength=20,maxLength=200"`
	StyleKeywords      []string `json:"style_keywords" validate:"min=3,max=8" jsonschema:"minItems=3,maxItems=8"`
	CompositionTips    []string `json:"composition_tips" validate:"min=2,max=5" jsonschema:"minItems=2,maxItems=5"`
	ColorPalette       []string `json:"color_palette" validate:"min=2,max=5" jsonschema:"minItems=2,maxItems=5"`
	Mood               string   `json:"mood"`
	TargetPlatform     string   `json:"target_platform"`
}

type ImagePromptResult struct {
	Prompts             []ImagePrompt       `json:"prompts" validate:"len=3,dive" jsonschema:"minItems=3,maxItems=3"`
	BrandAlignmentScore int                 `json:"brand_alignment_score" validate:"gte=0,lte=100" jsonschema:"minimum=0,maximum=100"`
	AdSuitabilityScore  int                 `json:"ad_suitability_score" validate:"gte=0,lte=100" jsonschema:"minimum=0,maximum=100"`
	Rationale           string              `json:"rationale"`
	OptimizationTips    []string            `json:"optimization_tips" validate:"min=3,max=5" jsonschema:"minItems=3,maxItems=5"`
	RecommendedVariant  int                 `json:"recommended_variant" validate:"gte=0,lte=2" jsonschema:"minimum=0,maximum=2"`
	PlatformGuidelines  map[string][]string `json:"platform_guidelines"`
}

var ImagePromptAgent = &Definition[ImagePromptParams, ImagePromptResult]{
	AgentName: "image_prompt",
	Summary:   "Writes three image-generation prompts for a Meta ad in the brand's visual style.",
	Tier:      Balanced,
	System: `你是{{brand_name}}的廣告視覺總監，擅長為圖像生成模型撰寫精確的英文提示詞。
先查詢品牌視覺規範、高效圖片特徵、平台尺寸要求與風格模板，再產出 3 個角度不同的提示詞變體，
並以 0 到 2 指出最推薦的變體。說明以繁體中文撰寫，提示詞本身使用英文。`,
	Prompt: `請設計廣告圖片提示詞。
圖片類型：{{image_type}}
風格偏好：{{style_preference}}
目標受眾：{{target_audience}}
圖片尺寸：{{image_size}}
特殊要求：{{special_requirements}}`,
	Tools: []string{
		"get_brand_visual_guidelines", "get_top_performing_image_features", "get_platform_specific_requirements",
		"analyze_similar_high_performing_images", "get_style_specific_prompts",
	},
	Prepare: func(p *ImagePromptParams, s *tools.Settings) {
		if p.ImageType == "" {
			p.ImageType = "產品特寫"
		}
		if p.StylePreference == "" {
			p.StylePreference = "現代簡約"
		}
		if p.ImageSize == "" {
			p.ImageSize = "1024x1024"
		}
		if p.TargetAudience == "" {
			p.TargetAudience = "25-44 歲注重健康的消費者"
		}
		if p.SpecialRequirements == "" {
			p.SpecialRequirements = "無"
		}
		s.ImageType = p.ImageType
		s.StylePreference = p.StylePreference
		s.ImageSize = p.ImageSize
	},
}

// ImageRenderer turns a prompt into image bytes and their MIME type.
type ImageRenderer interface {
	Generate(ctx context.Context, prompt string) ([]byte, string, error)
}

// RenderImage renders the chosen prompt of a result. A negative variant uses
// the recommended one.
func RenderImage(ctx context.Context, r ImageRenderer, result *ImagePromptResult, variant int) ([]byte, string, error) {
	if r == nil {
		return nil, "", errors.New("image generation not configured")
	}
	if variant < 0 {
		variant = result.RecommendedVariant
	}
	if variant < 0 || variant >= len(result.Prompts) {
		return nil, "", fmt.Errorf("%w: variant %d out of range", ErrInvalidParams, variant)
	}
	return r.Generate(ctx, result.Prompts[variant].MainPrompt)
}

type ImageAnalysisParams struct {
	BrandContext string `json:"brand_context,omitempty"`
}

type ImageScores struct {
	VisualAppeal     int `json:"visual_appeal" validate:"gte=1,lte=10" jsonschema:"minimum=1,maximum=10"`
	Composition      int `json:"composition" validate:"gte=1,lte=10" jsonschema:"minimum=1,maximum=10"`
	ColorUsage       int `json:"color_usage" validate:"gte=1,lte=10" jsonschema:"minimum=1,maximum=10"`
	TextReadability  int `json:"text_readability" validate:"gte=1,lte=10" jsonschema:"minimum=1,maximum=10"`
	BrandConsistency int `json:"brand_consistency" validate:"gte=1,lte=10" jsonschema:"minimum=1,maximum=10"`
	AdSuitability    int `json:"ad_suitability" validate:"gte=1,lte=10" jsonschema:"minimum=1,maximum=10"`
}

// Mean is the average of the six scores.
func (s ImageScores) Mean() float64 {
	return float64(s.VisualAppeal+s.Composition+s.ColorUsage+s.TextReadability+s.BrandConsistency+s.AdSuitability) / 6
}

type ImageAnalysisResult struct {
	Scores                       ImageScores       `json:"scores"`
	OverallScore                 float64           `json:"overall_score" validate:"gte=0,lte=10" jsonschema:"minimum=0,maximum=10" jsonschema_description:"六個分數的平均"`
	Strengths                    []string          `json:"strengths" validate:"min=3,max=5" jsonschema:"minItems=3,maxItems=5"`
	Weaknesses                   []string          `json:"weaknesses" validate:"min=3,max=5" jsonschema:"minItems=3,maxItems=5"`
	DetailedAnalysis             map[string]string `json:"detailed_analysis"`
	OptimizationSuggestions      []string          `json:"optimization_suggestions" validate:"min=5,max=7" jsonschema:"minItems=5,maxItems=7"`
	IsSuitableForAds             bool              `json:"is_suitable_for_ads"`
	SuitabilityReason            string            `json:"suitability_reason"`
	TargetAudienceRecommendation string            `json:"target_audience_recommendation"`
	OptimizationPrompt           string            `json:"optimization_prompt" jsonschema_description:"生成優化版圖片用的提示詞"`
}

var ImageAnalysis = &Definition[ImageAnalysisParams, ImageAnalysisResult]{
	AgentName: "image_analysis",
	Summary:   "Scores an uploaded ad image on six dimensions and suggests improvements.",
	Needs:     EndpointVision,
	Tier:      Quality,
	System: `你是專業的 Meta 廣告視覺評審。先呼叫 analyze_with_vision 取得圖片描述，
再對照品牌視覺標準與 Meta 圖片規範，從視覺吸引力、構圖、色彩、文字可讀性、品牌一致性、投放適配性
六個維度各給 1 到 10 分，總分為六項平均。以繁體中文回答。`,
	Prompt: `請分析附上的廣告圖片。
品牌背景：{{brand_context}}
請列出優缺點、5 到 7 項具體優化建議，並提供一段可生成優化版圖片的英文提示詞。`,
	Tools: []string{
		"analyze_with_vision", "get_brand_visual_standards", "get_meta_ad_guidelines", "get_high_performing_image_examples",
	},
	Prepare: func(p *ImageAnalysisParams, s *tools.Settings) {
		s.BrandContext = p.BrandContext
		if p.BrandContext == "" {
			p.BrandContext = "未提供，請依品牌標準判斷"
		}
	},
}

type CreativeOptimizationParams struct {
	TargetROAS *float64 `json:"target_roas,omitempty" validate:"omitempty,gt=0,lte=100"`
	FocusArea  string   `json:"focus_area,omitempty" jsonschema_description:"標題、圖片、文案或 CTA"`
}

type CreativeOptimization struct {
	ElementType         string   `json:"element_type"`
	CurrentPerformance  string   `json:"current_performance"`
	OptimizationAction  string   `json:"optimization_action"`
	ExpectedImprovement string   `json:"expected_improvement"`
	Priority            string   `json:"priority" jsonschema_description:"🔴高/🟡中/🟢低"`
	ExecutionSteps      []string `json:"execution_steps" validate:"min=2,max=5" jsonschema:"minItems=2,maxItems=5"`
}

type ABTestVariant struct {
	VariantName          string   `json:"variant_name"`
	Changes              []string `json:"changes"`
	Hypothesis           string   `json:"hypothesis"`
	ExpectedMetricImpact string   `json:"expected_metric_impact"`
}

type CreativeOptimizationResult struct {
	Optimizations         []CreativeOptimization `json:"optimizations" validate:"min=5,max=10,dive" jsonschema:"minItems=5,maxItems=10"`
	QuickWins             []string               `json:"quick_wins" validate:"min=3,max=5" jsonschema:"minItems=3,maxItems=5"`
	LongTermStrategy      string                 `json:"long_term_strategy"`
	ABTestPlan            []ABTestVariant        `json:"ab_test_plan" validate:"min=3,max=5,dive" jsonschema:"minItems=3,maxItems=5"`
	PerformancePrediction map[string]string      `json:"performance_prediction,omitempty"`
	ResourceRequirements  map[string]string      `json:"resource_requirements,omitempty"`
	RiskAssessment        map[string]string      `json:"risk_assessment,omitempty"`
}

var CreativeOptimizationAgent = &Definition[CreativeOptimizationParams, CreativeOptimizationResult]{
	AgentName: "creative_optimization",
	Summary:   "Finds underperforming creative elements and plans optimizations and A/B tests.",
	Tier:      Balanced,
	System: `你是 Meta 廣告素材優化顧問。用工具比較高效與低效素材、計算優化潛力，
提出 5 到 10 項具體優化建議（每項 2 到 5 個執行步驟）、3 到 5 個快速見效項目與 3 到 5 個 A/B 測試方案。
以繁體中文回答。`,
	Prompt: `目標 ROAS：{{target_roas}}
優化重點：{{focus_area}}
請產出素材優化計畫與長期策略。`,
	Tools: []string{
		"analyze_creative_performance", "get_successful_creative_patterns", "identify_underperforming_elements",
		"get_optimization_examples", "calculate_optimization_potential",
	},
	Prepare: func(p *CreativeOptimizationParams, s *tools.Settings) {
		s.TargetROAS = defaultTo(&p.TargetROAS, 3.0)
		if p.FocusArea == "" {
			p.FocusArea = "全面"
		}
		s.FocusArea = p.FocusArea
	},
}
