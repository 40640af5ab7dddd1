package tools

import (
	"context"
	"strings"

	"adsdash/agent-app/adsdata"
)

var copyThemeKeywords = []string{"茶", "健康", "養生", "傳統", "手作", "精選", "好茶", "品質", "新鮮"}

type CopyExample struct {
	Campaign       string  `json:"campaign"`
	Headline       string  `json:"headline,omitempty"`
	Body           string  `json:"body,omitempty"`
	ROAS           float64 `json:"roas"`
	CTR            float64 `json:"ctr"`
	TargetAudience string  `json:"target_audience"`
}

type TopCopy struct {
	HighPerformers []CopyExample `json:"high_performing_campaigns"`
	CommonThemes   []string      `json:"common_themes"`
}

// GetTopPerformingCopy returns up to ten rows with ROAS above 3.
func GetTopPerformingCopy(ctx context.Context, deps *Deps, _ NoArgs) (TopCopy, error) {
	rows, err := deps.records()
	if err != nil {
		return TopCopy{}, err
	}
	high := adsdata.Top(filterRows(rows, func(r adsdata.Record) bool { return r.ROAS > 3 }), 10,
		func(r adsdata.Record) float64 { return r.ROAS })
	out := TopCopy{HighPerformers: []CopyExample{}}
	var names []string
	for _, r := range high {
		out.HighPerformers = append(out.HighPerformers, CopyExample{
			Campaign:       r.Campaign,
			Headline:       r.Headline,
			Body:           r.Body,
			ROAS:           r.ROAS,
			CTR:            r.CTR,
			TargetAudience: strings.TrimSpace(r.Age + " " + r.Gender),
		})
		names = append(names, r.Campaign+" "+r.Headline)
	}
	out.CommonThemes = commonThemes(names)
	return out, nil
}

func commonThemes(texts []string) []string {
	var themes []string
	for _, kw := range copyThemeKeywords {
		n := 0
		for _, t := range texts {
			if strings.Contains(t, kw) {
				n++
			}
		}
		if n >= 2 {
			themes = append(themes, kw)
		}
	}
	if len(themes) == 0 {
		return []string{"品質", "健康"}
	}
	return themes
}

type AudienceInsight struct {
	Audience  string  `json:"audience"`
	ROAS      float64 `json:"roas"`
	CTR       float64 `json:"ctr"`
	Purchases float64 `json:"purchases"`
	Spend     float64 `json:"spend"`
}

type AudienceInsights struct {
	Audiences    []AudienceInsight `json:"audience_performance"`
	TopAudiences []AudienceInsight `json:"top_audiences"`
}

// GetAudienceInsights groups performance by age and gender.
func GetAudienceInsights(ctx context.Context, deps *Deps, _ NoArgs) (AudienceInsights, error) {
	rows, err := deps.records()
	if err != nil {
		return AudienceInsights{}, err
	}
	key, _ := adsdata.Dimension("audience")
	out := AudienceInsights{Audiences: []AudienceInsight{}}
	for _, g := range adsdata.GroupBy(rows, key) {
		out.Audiences = append(out.Audiences, AudienceInsight{
			Audience: g.Key, ROAS: g.ROAS, CTR: g.CTR, Purchases: g.Purchases, Spend: g.Spend,
		})
	}
	top := append([]AudienceInsight(nil), out.Audiences...)
	sortBy(top, func(a AudienceInsight) float64 { return a.ROAS })
	out.TopAudiences = head(top, 5)
	return out, nil
}

type BrandVoice struct {
	BrandName       string   `json:"brand_name"`
	ProductCategory string   `json:"product_category"`
	BrandValues     string   `json:"brand_values"`
	ToneExamples    []string `json:"tone_examples"`
	Avoid           []string `json:"avoid"`
}

func GetBrandVoiceGuidelines(ctx context.Context, deps *Deps, _ NoArgs) (BrandVoice, error) {
	b := deps.Brand
	return BrandVoice{
		BrandName:       b.Name,
		ProductCategory: b.Category,
		BrandValues:     b.Values,
		ToneExamples:    b.ToneExamples,
		Avoid:           b.Avoid,
	}, nil
}

type CompetitorMessaging struct {
	MarketPositioning    string    `json:"market_positioning"`
	DifferentiationPoint []string  `json:"differentiation_points"`
	SimilarAds           []Snippet `json:"similar_high_performing_ads,omitempty"`
}

// AnalyzeCompetitorMessaging returns brand positioning, enriched with similar
// ads from the knowledge base when one is configured.
func AnalyzeCompetitorMessaging(ctx context.Context, deps *Deps, _ NoArgs) (CompetitorMessaging, error) {
	out := CompetitorMessaging{
		MarketPositioning:    deps.Brand.Category,
		DifferentiationPoint: deps.Brand.Differentiators,
	}
	if deps.Knowledge != nil {
		snippets, err := deps.Knowledge.Search(ctx, "茶飲 健康 養生 傳統", 5)
		if err != nil {
			return CompetitorMessaging{}, err
		}
		out.SimilarAds = snippets
	}
	return out, nil
}

type SeasonalTheme struct {
	Month    int      `json:"month"`
	Season   string   `json:"season"`
	Themes   []string `json:"themes"`
	Emotions []string `json:"emotions"`
}

// GetSeasonalThemes returns themes for the current month of deps.Now.
func GetSeasonalThemes(ctx context.Context, deps *Deps, _ NoArgs) (SeasonalTheme, error) {
	month := int(deps.now().Month())
	switch month {
	case 3, 4, 5:
		return SeasonalTheme{Month: month, Season: "春季", Themes: []string{"春茶上市", "清新爽口", "春日養生", "新品嚐鮮"}, Emotions: []string{"清新", "活力", "期待"}}, nil
	case 6, 7, 8:
		return SeasonalTheme{Month: month, Season: "夏季", Themes: []string{"消暑解渴", "冰涼茶飲", "夏日清涼", "午後時光"}, Emotions: []string{"清涼", "舒爽", "放鬆"}}, nil
	case 9, 10, 11:
		return SeasonalTheme{Month: month, Season: "秋季", Themes: []string{"秋季養生", "溫潤茶香", "秋收好茶", "品茗時刻"}, Emotions: []string{"溫暖", "沉靜", "豐收"}}, nil
	default:
		return SeasonalTheme{Month: month, Season: "冬季", Themes: []string{"暖心熱飲", "冬日養生", "溫暖時光", "節慶送禮"}, Emotions: []string{"溫暖", "療癒", "關懷"}}, nil
	}
}

func filterRows(rows []adsdata.Record, keep func(adsdata.Record) bool) []adsdata.Record {
	var out []adsdata.Record
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
