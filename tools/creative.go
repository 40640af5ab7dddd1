package tools

import (
	"context"
	"strings"

	"adsdash/agent-app/adsdata"
)

type PerformanceDistribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Average   int `json:"average"`
	Poor      int `json:"poor"`
}

type CreativePerformance struct {
	AverageROAS    float64                 `json:"avg_roas"`
	AverageCTR     float64                 `json:"avg_ctr"`
	AverageCPA     float64                 `json:"avg_cpa"`
	TotalCampaigns int                     `json:"total_campaigns"`
	HighPerformers int                     `json:"high_performers_count"`
	LowPerformers  int                     `json:"low_performers_count"`
	Distribution   PerformanceDistribution `json:"performance_distribution"`
}

// AnalyzeCreativePerformance buckets rows by ROAS relative to the account.
func AnalyzeCreativePerformance(ctx context.Context, deps *Deps, _ NoArgs) (CreativePerformance, error) {
	rows, err := deps.records()
	if err != nil {
		return CreativePerformance{}, err
	}
	total := adsdata.Summarize(rows)
	out := CreativePerformance{
		AverageROAS:    total.ROAS,
		AverageCTR:     total.CTR,
		AverageCPA:     total.CPA,
		TotalCampaigns: len(campaignStats(rows)),
	}
	for _, r := range rows {
		switch {
		case r.ROAS > total.ROAS*1.5:
			out.HighPerformers++
		case r.ROAS < total.ROAS*0.5:
			out.LowPerformers++
		}
		switch {
		case r.ROAS > 5:
			out.Distribution.Excellent++
		case r.ROAS >= 3:
			out.Distribution.Good++
		case r.ROAS >= 1.5:
			out.Distribution.Average++
		default:
			out.Distribution.Poor++
		}
	}
	return out, nil
}

var creativeKeywords = []string{"茶", "健康", "養生", "傳統", "手作", "精選", "好茶", "新品", "限時"}

type CreativePatterns struct {
	TopCampaigns     []string       `json:"top_campaigns"`
	CommonObjectives map[string]int `json:"common_objectives"`
	AverageTopROAS   float64        `json:"avg_top_roas"`
	AverageTopCTR    float64        `json:"avg_top_ctr"`
	CommonKeywords   []string       `json:"common_keywords"`
}

// GetSuccessfulCreativePatterns describes the ten best rows by ROAS.
func GetSuccessfulCreativePatterns(ctx context.Context, deps *Deps, _ NoArgs) (CreativePatterns, error) {
	rows, err := deps.records()
	if err != nil {
		return CreativePatterns{}, err
	}
	top := adsdata.Top(rows, 10, func(r adsdata.Record) float64 { return r.ROAS })
	out := CreativePatterns{
		TopCampaigns:     uniqueCampaigns(top, 10),
		CommonObjectives: map[string]int{},
		CommonKeywords:   []string{},
	}
	objKey, _ := adsdata.Dimension("objective")
	for _, g := range head(adsdata.GroupBy(top, objKey), 3) {
		out.CommonObjectives[g.Key] = g.Rows
	}
	roas := make([]float64, len(top))
	ctr := make([]float64, len(top))
	var names strings.Builder
	for i, r := range top {
		roas[i], ctr[i] = r.ROAS, r.CTR
		names.WriteString(r.Campaign)
		names.WriteString(" ")
	}
	out.AverageTopROAS = adsdata.Round(adsdata.Mean(roas), 2)
	out.AverageTopCTR = adsdata.Round(adsdata.Mean(ctr), 2)
	for _, kw := range creativeKeywords {
		if strings.Contains(names.String(), kw) {
			out.CommonKeywords = append(out.CommonKeywords, kw)
		}
	}
	return out, nil
}

type UnderperformingElements struct {
	AllOnTarget     bool     `json:"all_on_target"`
	LowROASCampaign []string `json:"low_roas_campaigns"`
	AverageROAS     float64  `json:"avg_underperformer_roas"`
	WastedSpend     float64  `json:"total_wasted_spend"`
	CommonIssues    []string `json:"common_issues"`
}

// IdentifyUnderperformingElements compares rows under the target ROAS with the
// whole account.
func IdentifyUnderperformingElements(ctx context.Context, deps *Deps, _ NoArgs) (UnderperformingElements, error) {
	rows, err := deps.records()
	if err != nil {
		return UnderperformingElements{}, err
	}
	target := deps.targetROAS()
	under := filterRows(rows, func(r adsdata.Record) bool { return r.ROAS < target })
	if len(under) == 0 {
		return UnderperformingElements{AllOnTarget: true, LowROASCampaign: []string{}, CommonIssues: []string{}}, nil
	}
	all, low := adsdata.Summarize(rows), adsdata.Summarize(under)
	out := UnderperformingElements{
		LowROASCampaign: uniqueCampaigns(adsdata.Top(under, -1, func(r adsdata.Record) float64 { return r.Spend }), 10),
		AverageROAS:     low.ROAS,
		WastedSpend:     low.Spend,
		CommonIssues:    []string{},
	}
	if low.CTR < all.CTR {
		out.CommonIssues = append(out.CommonIssues, "CTR 偏低：素材吸引力不足")
	}
	if low.CPA > all.CPA*1.5 {
		out.CommonIssues = append(out.CommonIssues, "CPA 過高：轉換效率低")
	}
	return out, nil
}

type OptimizationExamples struct {
	SimilarCases  []Snippet `json:"similar_optimization_cases,omitempty"`
	BestPractices []string  `json:"best_practices,omitempty"`
}

func GetOptimizationExamples(ctx context.Context, deps *Deps, _ NoArgs) (OptimizationExamples, error) {
	if deps.Knowledge != nil {
		snippets, err := deps.Knowledge.Search(ctx, "素材優化 A/B測試 提升轉換", 5)
		if err == nil && len(snippets) > 0 {
			return OptimizationExamples{SimilarCases: snippets}, nil
		}
	}
	return OptimizationExamples{BestPractices: []string{
		"標題測試：問句 vs 陳述句",
		"圖片測試：產品特寫 vs 生活場景",
		"CTA 測試：立即購買 vs 了解更多",
		"文案測試：功能性 vs 情感性",
		"色彩測試：暖色調 vs 冷色調",
	}}, nil
}

type OptimizationPotential struct {
	CurrentROAS      float64 `json:"current_avg_roas"`
	TargetROAS       float64 `json:"target_roas"`
	TotalSpend       float64 `json:"total_spend"`
	CurrentRevenue   float64 `json:"current_revenue"`
	PotentialRevenue float64 `json:"potential_revenue"`
	RevenueGap       float64 `json:"revenue_gap"`
	ImprovementPct   float64 `json:"improvement_percentage"`
}

// CalculateOptimizationPotential is the revenue gap if all spend reached the target ROAS.
func CalculateOptimizationPotential(ctx context.Context, deps *Deps, _ NoArgs) (OptimizationPotential, error) {
	rows, err := deps.records()
	if err != nil {
		return OptimizationPotential{}, err
	}
	s := adsdata.Summarize(rows)
	target := deps.targetROAS()
	potential := s.Spend * target
	gap := potential - s.Revenue
	return OptimizationPotential{
		CurrentROAS:      s.ROAS,
		TargetROAS:       target,
		TotalSpend:       s.Spend,
		CurrentRevenue:   s.Revenue,
		PotentialRevenue: adsdata.Round(potential, 2),
		RevenueGap:       adsdata.Round(gap, 2),
		ImprovementPct:   adsdata.Round(adsdata.Ratio(gap, s.Revenue)*100, 2),
	}, nil
}

type CreativeMetric struct {
	Headline    string  `json:"headline"`
	ROAS        float64 `json:"roas"`
	CTR         float64 `json:"ctr"`
	CPA         float64 `json:"cpa"`
	Conversions float64 `json:"conversions"`
	Impressions float64 `json:"impressions"`
	Spend       float64 `json:"spend"`
}

// SummarizeCreatives aggregates performance per headline.
func SummarizeCreatives(ctx context.Context, deps *Deps, _ NoArgs) ([]CreativeMetric, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	withHeadline := filterRows(rows, func(r adsdata.Record) bool { return r.Headline != "" })
	key, _ := adsdata.Dimension("headline")
	out := []CreativeMetric{}
	for _, g := range adsdata.GroupBy(withHeadline, key) {
		out = append(out, CreativeMetric{
			Headline:    g.Key,
			ROAS:        g.ROAS,
			CTR:         g.CTR,
			CPA:         g.CPA,
			Conversions: g.Purchases,
			Impressions: g.Impressions,
			Spend:       g.Spend,
		})
	}
	return out, nil
}

type SegmentPerformance struct {
	Segment     string  `json:"segment"`
	ROAS        float64 `json:"roas"`
	CTR         float64 `json:"ctr"`
	Spend       float64 `json:"spend"`
	Conversions float64 `json:"conversions"`
}

type SegmentArgs struct {
	GroupBy string `json:"group_by,omitempty" jsonschema_description:"Column to segment by; defaults to the run's grouping" jsonschema:"enum=campaign,enum=ad_set,enum=ad_name,enum=headline,enum=objective,enum=age,enum=gender,enum=region,enum=device,enum=audience"`
}

// FetchSegmentPerformance returns the ten largest segments by spend for a
// column. An unknown column yields no segments.
func FetchSegmentPerformance(ctx context.Context, deps *Deps, args SegmentArgs) ([]SegmentPerformance, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	column := args.GroupBy
	if column == "" {
		column = deps.Settings.GroupBy
	}
	if column == "" {
		column = "ad_name"
	}
	out := []SegmentPerformance{}
	key, ok := adsdata.Dimension(column)
	if !ok {
		return out, nil
	}
	for _, g := range head(adsdata.GroupBy(rows, key), 10) {
		out = append(out, SegmentPerformance{Segment: g.Key, ROAS: g.ROAS, CTR: g.CTR, Spend: g.Spend, Conversions: g.Purchases})
	}
	return out, nil
}
