package tools

import (
	"context"
	"fmt"
	"math"
	"sort"

	"adsdash/agent-app/adsdata"
)

type BaselineMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ComputeBaselineMetrics reports the account figures a test is measured against.
func ComputeBaselineMetrics(ctx context.Context, deps *Deps, _ NoArgs) ([]BaselineMetric, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	s := adsdata.Summarize(rows)
	return []BaselineMetric{
		{Name: "spend", Value: s.Spend},
		{Name: "roas", Value: s.ROAS},
		{Name: "purchases", Value: s.Purchases},
		{Name: "ctr_percent", Value: s.CTR},
		{Name: "link_clicks", Value: s.Clicks},
		{Name: "conversion_rate_percent", Value: s.CVR},
	}, nil
}

type VariantStat struct {
	Value  string  `json:"value"`
	ROAS   float64 `json:"roas"`
	CTR    float64 `json:"ctr"`
	Clicks float64 `json:"clicks"`
}

type TestOpportunity struct {
	Type  string        `json:"type"`
	Best  []VariantStat `json:"best,omitempty"`
	Worst []VariantStat `json:"worst,omitempty"`
	All   []VariantStat `json:"performance,omitempty"`
}

// DetectTestOpportunities contrasts the best and worst headlines with at
// least fifty clicks, and lists CTR per call to action.
func DetectTestOpportunities(ctx context.Context, deps *Deps, _ NoArgs) ([]TestOpportunity, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	out := []TestOpportunity{}

	headlineKey, _ := adsdata.Dimension("headline")
	var headlines []VariantStat
	for _, g := range adsdata.GroupBy(filterRows(rows, func(r adsdata.Record) bool { return r.Headline != "" }), headlineKey) {
		if g.Clicks >= 50 {
			headlines = append(headlines, VariantStat{Value: g.Key, ROAS: g.ROAS, CTR: g.CTR, Clicks: g.Clicks})
		}
	}
	if len(headlines) > 0 {
		sortBy(headlines, func(v VariantStat) float64 { return v.ROAS })
		worst := append([]VariantStat(nil), headlines...)
		sortBy(worst, func(v VariantStat) float64 { return -v.ROAS })
		out = append(out, TestOpportunity{Type: "headline", Best: head(headlines, 3), Worst: head(worst, 3)})
	}

	ctaRows := filterRows(rows, func(r adsdata.Record) bool { return r.CTA != "" })
	if len(ctaRows) > 0 {
		var ctas []VariantStat
		for _, g := range adsdata.GroupBy(ctaRows, func(r adsdata.Record) string { return r.CTA }) {
			ctas = append(ctas, VariantStat{Value: g.Key, ROAS: g.ROAS, CTR: g.CTR, Clicks: g.Clicks})
		}
		out = append(out, TestOpportunity{Type: "cta", All: ctas})
	}
	return out, nil
}

type VariableBlueprint struct {
	Variables         []TestVariable `json:"variables"`
	TotalVariables    int            `json:"total_variables"`
	TotalCombinations int            `json:"total_combinations"`
	Complexity        string         `json:"complexity"`
}

type TestVariable struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// TotalCombinations is the product of option counts; a variable with no
// options counts as one.
func TotalCombinations(variables map[string][]string) int {
	total := 1
	for _, opts := range variables {
		total *= max(len(opts), 1)
	}
	return total
}

func complexityLabel(total int) string {
	switch {
	case total <= 10:
		return "simple"
	case total <= 20:
		return "medium"
	default:
		return "complex"
	}
}

func VariableBlueprintTool(ctx context.Context, deps *Deps, _ NoArgs) (VariableBlueprint, error) {
	vars := deps.Settings.Experiment.Variables
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)
	out := VariableBlueprint{Variables: []TestVariable{}, TotalVariables: len(vars)}
	for _, n := range names {
		out.Variables = append(out.Variables, TestVariable{Name: n, Options: vars[n]})
	}
	out.TotalCombinations = TotalCombinations(vars)
	out.Complexity = complexityLabel(out.TotalCombinations)
	return out, nil
}

// SampleSizePerVariant is the two-proportion sample size at power 0.8 with a
// Bonferroni-corrected two-sided alpha of 0.05 across all combinations.
// Both the baseline and the lifted rate must stay below 1.
func SampleSizePerVariant(combinations int, baselineRate, mde float64) (int, error) {
	p1 := math.Max(baselineRate, 1e-4)
	p2 := p1 * (1 + math.Max(mde, 1e-4))
	if p1 >= 1 || p2 >= 1 {
		return 0, fmt.Errorf("%w: baseline %g lifted by %g gives %g", ErrRateOutOfRange, baselineRate, mde, p2)
	}
	zAlpha := normalQuantile(1 - 0.05/float64(2*max(combinations, 1)))
	zBeta := normalQuantile(0.8)
	pAvg := (p1 + p2) / 2
	num := zAlpha*math.Sqrt(2*pAvg*(1-pAvg)) + zBeta*math.Sqrt(p1*(1-p1)+p2*(1-p2))
	diff := math.Abs(p1 - p2)
	if diff == 0 {
		return 0, nil
	}
	return int(math.Ceil(num * num / (diff * diff))), nil
}

func normalQuantile(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

type SampleEstimate struct {
	BaselineRate         float64 `json:"baseline_rate"`
	MDE                  float64 `json:"mde"`
	SamplePerVariant     int     `json:"sample_per_variant"`
	TotalSample          int     `json:"total_sample"`
	ExpectedDailyTraffic int     `json:"expected_daily_traffic"`
	EstimatedDays        int     `json:"estimated_days"`
}

func SampleEstimation(ctx context.Context, deps *Deps, _ NoArgs) (SampleEstimate, error) {
	exp := deps.Settings.Experiment
	combos := TotalCombinations(exp.Variables)
	perVariant, err := SampleSizePerVariant(combos, exp.BaselineRate, exp.MinimumDetectableEffect)
	if err != nil {
		return SampleEstimate{}, err
	}
	total := perVariant * combos
	daily := max(exp.ExpectedDailyTraffic, 1)
	return SampleEstimate{
		BaselineRate:         exp.BaselineRate,
		MDE:                  exp.MinimumDetectableEffect,
		SamplePerVariant:     perVariant,
		TotalSample:          total,
		ExpectedDailyTraffic: exp.ExpectedDailyTraffic,
		EstimatedDays:        (total + daily - 1) / daily,
	}, nil
}

type DatasetInsights struct {
	Available    bool           `json:"available"`
	TopCampaigns []CampaignStat `json:"top_campaigns,omitempty"`
	MedianROAS   float64        `json:"median_roas,omitempty"`
	MedianCTR    float64        `json:"median_ctr,omitempty"`
	Span         string         `json:"span,omitempty"`
}

func DatasetInsightsTool(ctx context.Context, deps *Deps, _ NoArgs) (DatasetInsights, error) {
	rows, err := deps.records()
	if err != nil {
		return DatasetInsights{}, nil
	}
	stats := campaignStats(rows)
	roas := make([]float64, len(stats))
	ctr := make([]float64, len(stats))
	for i, s := range stats {
		roas[i], ctr[i] = s.ROAS, s.CTR
	}
	top := append([]CampaignStat(nil), stats...)
	sortStats(top, func(s CampaignStat) float64 { return s.ROAS })
	out := DatasetInsights{
		Available:    true,
		TopCampaigns: head(top, 5),
		MedianROAS:   adsdata.Round(adsdata.Percentile(roas, 50), 2),
		MedianCTR:    adsdata.Round(adsdata.Percentile(ctr, 50), 2),
	}
	if r := dateRange(deps.Data); r.Start != "" {
		out.Span = r.Start + " ~ " + r.End
	}
	return out, nil
}

type LaunchConstraints struct {
	LaunchCalendar []string `json:"launch_calendar"`
}

func LaunchConstraintsTool(ctx context.Context, deps *Deps, _ NoArgs) (LaunchConstraints, error) {
	cal := deps.Settings.Experiment.LaunchCalendar
	if cal == nil {
		cal = []string{}
	}
	return LaunchConstraints{LaunchCalendar: cal}, nil
}

type DesignTemplate struct {
	Template map[string]string `json:"design_template"`
}

func DesignTemplates(ctx context.Context, deps *Deps, _ NoArgs) (DesignTemplate, error) {
	t := deps.Settings.Experiment.DesignTemplate
	if t == nil {
		t = map[string]string{}
	}
	return DesignTemplate{Template: t}, nil
}
