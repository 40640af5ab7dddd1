package tools

import (
	"context"
	"fmt"
	"strings"

	"adsdash/agent-app/adsdata"
)

type VisualGuidelines struct {
	BrandName       string   `json:"brand_name"`
	ProductCategory string   `json:"product_category"`
	VisualStyle     []string `json:"visual_style"`
	ColorPalette    []string `json:"color_palette"`
	StyleKeywords   []string `json:"style_keywords"`
	Avoid           []string `json:"avoid"`
}

func GetBrandVisualGuidelines(ctx context.Context, deps *Deps, _ NoArgs) (VisualGuidelines, error) {
	b := deps.Brand
	return VisualGuidelines{
		BrandName:       b.Name,
		ProductCategory: b.Category,
		VisualStyle:     b.VisualStyle,
		ColorPalette:    b.Colors,
		StyleKeywords: []string{
			"modern", "elegant", "natural", "warm", "professional", "high-quality",
			"taiwanese", "traditional-meets-modern", "wellness", "artisanal",
		},
		Avoid: b.VisualAvoid,
	}, nil
}

type ImageFeatures struct {
	HighPerformers    []string `json:"high_performing_campaigns"`
	AudienceInsights  []string `json:"audience_insights"`
	RecommendedStyles []string `json:"recommended_styles"`
}

// GetTopPerformingImageFeatures infers image direction from the audiences of
// the ten best rows with ROAS above 3.
func GetTopPerformingImageFeatures(ctx context.Context, deps *Deps, _ NoArgs) (ImageFeatures, error) {
	rows, err := deps.records()
	if err != nil {
		return ImageFeatures{}, err
	}
	high := adsdata.Top(filterRows(rows, func(r adsdata.Record) bool { return r.ROAS > 3 }), 10,
		func(r adsdata.Record) float64 { return r.ROAS })

	out := ImageFeatures{
		HighPerformers: uniqueCampaigns(high, 5),
		RecommendedStyles: []string{
			"產品特寫：突出質感和細節",
			"生活場景：營造品茶氛圍",
			"品牌故事：展現工藝和傳承",
		},
	}
	ageKey, _ := adsdata.Dimension("age")
	for _, g := range head(adsdata.GroupBy(high, ageKey), 3) {
		switch {
		case strings.Contains(g.Key, "25-34"), strings.Contains(g.Key, "35-44"):
			out.AudienceInsights = appendUnique(out.AudienceInsights, "年輕專業族群：現代簡約、時尚感")
		case strings.Contains(g.Key, "45-54"), strings.Contains(g.Key, "55-64"):
			out.AudienceInsights = appendUnique(out.AudienceInsights, "成熟族群：傳統工藝、品質感")
		}
	}
	if len(out.AudienceInsights) == 0 {
		out.AudienceInsights = []string{"一般大眾：平衡傳統與現代"}
	}
	return out, nil
}

type PlatformRequirements struct {
	Size         string   `json:"size"`
	Platform     string   `json:"platform"`
	Requirements []string `json:"requirements"`
}

var platformSpecs = map[string]PlatformRequirements{
	"1024x1024": {Platform: "Instagram Feed / Facebook 方形貼文", Requirements: []string{
		"主體居中，適合方形裁切", "視覺焦點明確", "文字（如有）保持在安全區域內", "適合手機直式瀏覽",
	}},
	"1792x1024": {Platform: "Facebook 橫幅 / Desktop Feed", Requirements: []string{
		"橫向構圖，主體可偏左或偏右", "適合桌面版瀏覽", "可包含更多環境元素", "文字區域建議在左側或右側",
	}},
	"1024x1792": {Platform: "Instagram / Facebook Stories", Requirements: []string{
		"直式構圖，主體在中上方", "適合全螢幕直式瀏覽", "上下預留空間給文字覆蓋", "CTA 按鈕區域在下方",
	}},
}

// GetPlatformSpecificRequirements maps the requested image size to a Meta
// placement. Unknown sizes fall back to square.
func GetPlatformSpecificRequirements(ctx context.Context, deps *Deps, _ NoArgs) (PlatformRequirements, error) {
	size := deps.Settings.ImageSize
	spec, ok := platformSpecs[size]
	if !ok {
		size = "1024x1024"
		spec = platformSpecs[size]
	}
	spec.Size = size
	return spec, nil
}

type SimilarImages struct {
	SimilarAds      []Snippet `json:"similar_high_performing_ads,omitempty"`
	Recommendations []string  `json:"general_recommendations,omitempty"`
}

// AnalyzeSimilarHighPerformingImages searches the knowledge base when present,
// and otherwise returns general guidance.
func AnalyzeSimilarHighPerformingImages(ctx context.Context, deps *Deps, _ NoArgs) (SimilarImages, error) {
	if deps.Knowledge != nil {
		query := strings.TrimSpace(deps.Brand.Category + " " + deps.Settings.StylePreference)
		snippets, err := deps.Knowledge.Search(ctx, query, 5)
		if err == nil && len(snippets) > 0 {
			return SimilarImages{SimilarAds: snippets}, nil
		}
	}
	return SimilarImages{Recommendations: []string{
		"使用自然光線，營造溫暖氛圍",
		"產品特寫搭配環境元素",
		"色調統一，避免過多顏色",
		"留白空間，避免擁擠感",
	}}, nil
}

type StyleTemplate struct {
	Style       string   `json:"style"`
	Keywords    []string `json:"keywords"`
	Composition []string `json:"composition"`
	Lighting    []string `json:"lighting"`
	Colors      []string `json:"colors"`
}

var styleTemplates = map[string]StyleTemplate{
	"現代簡約": {
		Keywords:    []string{"minimalist", "clean", "simple", "modern", "sleek"},
		Composition: []string{"centered", "lots of white space", "geometric"},
		Lighting:    []string{"soft natural light", "bright", "even lighting"},
		Colors:      []string{"neutral tones", "white", "beige", "minimal colors"},
	},
	"溫暖自然": {
		Keywords:    []string{"natural", "warm", "organic", "cozy", "rustic"},
		Composition: []string{"natural arrangement", "soft focus background"},
		Lighting:    []string{"warm sunlight", "golden hour", "soft shadows"},
		Colors:      []string{"earth tones", "brown", "green", "warm amber"},
	},
	"時尚潮流": {
		Keywords:    []string{"trendy", "stylish", "contemporary", "chic", "vibrant"},
		Composition: []string{"dynamic angle", "bold composition"},
		Lighting:    []string{"dramatic lighting", "high contrast"},
		Colors:      []string{"bold colors", "gradient", "vibrant tones"},
	},
	"傳統文化": {
		Keywords:    []string{"traditional", "cultural", "elegant", "classic", "artisanal"},
		Composition: []string{"symmetrical", "balanced", "traditional arrangement"},
		Lighting:    []string{"soft diffused light", "atmospheric"},
		Colors:      []string{"traditional colors", "muted tones", "classic palette"},
	},
}

func GetStyleSpecificPrompts(ctx context.Context, deps *Deps, _ NoArgs) (StyleTemplate, error) {
	style := deps.Settings.StylePreference
	tmpl, ok := styleTemplates[style]
	if !ok {
		style = "現代簡約"
		tmpl = styleTemplates[style]
	}
	tmpl.Style = style
	return tmpl, nil
}

const visionPrompt = `請以專業廣告分析師的角度，詳細分析這張廣告圖片。

品牌背景：%s

請描述：
1. 圖片的主要內容和元素
2. 構圖和視覺流
3. 色彩運用
4. 文字內容（如有）
5. 整體風格和氛圍
6. 是否適合用於廣告

請提供客觀且詳細的描述，作為後續評分的依據。`

type VisionAnalysis struct {
	Analysis string `json:"vision_analysis"`
}

// AnalyzeWithVision sends the run's attached image to the vision model.
func AnalyzeWithVision(ctx context.Context, deps *Deps, _ NoArgs) (VisionAnalysis, error) {
	if deps.Image == nil || len(deps.Image.Data) == 0 {
		return VisionAnalysis{}, ErrNoImage
	}
	if deps.Vision == nil {
		return VisionAnalysis{}, ErrNoVision
	}
	brandContext := deps.Settings.BrandContext
	if brandContext == "" {
		brandContext = deps.Brand.Name + "：" + deps.Brand.Values
	}
	text, err := deps.Vision.Describe(ctx, deps.Image.Data, deps.Image.MIMEType, fmt.Sprintf(visionPrompt, brandContext))
	if err != nil {
		return VisionAnalysis{}, fmt.Errorf("vision describe: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return VisionAnalysis{}, fmt.Errorf("vision model returned no text")
	}
	return VisionAnalysis{Analysis: text}, nil
}

type VisualStandards struct {
	BrandName    string   `json:"brand_name"`
	BrandValues  string   `json:"brand_values"`
	ColorPalette []string `json:"color_palette"`
	Style        []string `json:"style"`
	Tone         string   `json:"tone"`
	KeyElements  []string `json:"key_elements"`
	Avoid        []string `json:"avoid"`
}

func GetBrandVisualStandards(ctx context.Context, deps *Deps, _ NoArgs) (VisualStandards, error) {
	b := deps.Brand
	return VisualStandards{
		BrandName:    b.Name,
		BrandValues:  b.Values,
		ColorPalette: b.Colors,
		Style:        b.VisualStyle,
		Tone:         "親切專業、值得信賴",
		KeyElements:  []string{"茶葉", "茶具", "自然元素", "台灣特色"},
		Avoid:        b.VisualAvoid,
	}, nil
}

type MetaAdGuidelines struct {
	ImageRequirements []string `json:"image_requirements"`
	ContentPolicies   []string `json:"content_policies"`
	BestPractices     []string `json:"best_practices"`
}

func GetMetaAdGuidelines(ctx context.Context, deps *Deps, _ NoArgs) (MetaAdGuidelines, error) {
	return MetaAdGuidelines{
		ImageRequirements: []string{
			"解析度：至少 1080x1080",
			"檔案格式：JPG 或 PNG",
			"文字占比：建議少於 20%",
			"圖片清晰度：高清晰，無模糊",
			"主體明確：視覺焦點清晰",
		},
		ContentPolicies: []string{
			"禁止：誤導性內容",
			"禁止：低品質或令人困惑的圖片",
			"禁止：過度性暗示",
			"禁止：前後對比圖（減肥廣告）",
			"建議：真實產品呈現",
			"建議：符合品牌形象",
			"建議：專業高品質",
		},
		BestPractices: []string{
			"手機優先：確保手機端清晰可見",
			"焦點明確：單一主體，避免過多元素",
			"色彩和諧：使用品牌色系",
			"CTA 清晰：如有文字，要清晰可讀",
		},
	}, nil
}

type ImageExamples struct {
	HighPerformers []string `json:"high_performing_campaigns"`
	SuccessFactors []string `json:"common_success_factors"`
}

func GetHighPerformingImageExamples(ctx context.Context, deps *Deps, _ NoArgs) (ImageExamples, error) {
	rows, err := deps.records()
	if err != nil {
		return ImageExamples{}, err
	}
	high := adsdata.Top(filterRows(rows, func(r adsdata.Record) bool { return r.ROAS > 3 }), 5,
		func(r adsdata.Record) float64 { return r.ROAS })
	return ImageExamples{
		HighPerformers: uniqueCampaigns(high, 5),
		SuccessFactors: []string{"產品特寫清晰可見", "生活場景營造氛圍", "色調溫暖自然", "構圖簡潔專業", "品牌識別明確"},
	}, nil
}

func uniqueCampaigns(rows []adsdata.Record, n int) []string {
	out := []string{}
	for _, r := range rows {
		if len(out) == n {
			break
		}
		out = appendUnique(out, r.Campaign)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
