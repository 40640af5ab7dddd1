package tools

import (
	"context"
	"sort"

	"adsdash/agent-app/adsdata"
)

type funnelStage struct {
	name  string
	count func(adsdata.Record) float64
}

var funnelStages = []funnelStage{
	{"reach", func(r adsdata.Record) float64 { return r.Reach }},
	{"impressions", func(r adsdata.Record) float64 { return r.Impressions }},
	{"clicks", func(r adsdata.Record) float64 { return r.Clicks }},
	{"landing_page_views", func(r adsdata.Record) float64 { return r.LandingPageViews }},
	{"content_views", func(r adsdata.Record) float64 { return r.ContentViews }},
	{"add_to_cart", func(r adsdata.Record) float64 { return r.AddToCart }},
	{"checkout", func(r adsdata.Record) float64 { return r.Checkouts }},
	{"purchase", func(r adsdata.Record) float64 { return r.Purchases }},
}

// presentStages drops stages the export has no values for.
func presentStages(rows []adsdata.Record) []funnelStage {
	var out []funnelStage
	for _, st := range funnelStages {
		for _, r := range rows {
			if st.count(r) != 0 {
				out = append(out, st)
				break
			}
		}
	}
	return out
}

type FunnelStage struct {
	Name           string  `json:"name"`
	Count          float64 `json:"count"`
	ConversionRate float64 `json:"conversion_rate"`
	DropRate       float64 `json:"drop_rate"`
}

func stageRates(rows []adsdata.Record, stages []funnelStage) []FunnelStage {
	out := make([]FunnelStage, 0, len(stages))
	for i, st := range stages {
		var count float64
		for _, r := range rows {
			count += st.count(r)
		}
		fs := FunnelStage{Name: st.name, Count: count, ConversionRate: 100}
		if i > 0 {
			fs.ConversionRate = adsdata.Round(adsdata.Ratio(count, out[i-1].Count)*100, 2)
			fs.DropRate = adsdata.Round(100-fs.ConversionRate, 2)
		}
		out = append(out, fs)
	}
	return out
}

// ComputeFunnelStages reports stage-to-stage conversion from reach to purchase.
func ComputeFunnelStages(ctx context.Context, deps *Deps, _ NoArgs) ([]FunnelStage, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	return stageRates(rows, presentStages(rows)), nil
}

type SegmentInsight struct {
	Segment         string  `json:"segment_name"`
	BestStage       string  `json:"best_stage"`
	BestStageRate   float64 `json:"best_stage_metric"`
	WorstStage      string  `json:"worst_stage"`
	WorstStageRate  float64 `json:"worst_stage_metric"`
	SegmentRowCount int     `json:"rows"`
}

// AnalyzeFunnelSegments finds the best and worst funnel step for the four
// most frequent values of each segment column.
func AnalyzeFunnelSegments(ctx context.Context, deps *Deps, _ NoArgs) ([]SegmentInsight, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	columns := deps.Settings.SegmentColumns
	if len(columns) == 0 {
		columns = []string{"age", "gender"}
	}
	stages := presentStages(rows)
	out := []SegmentInsight{}
	for _, col := range columns {
		key, ok := adsdata.Dimension(col)
		if !ok {
			continue
		}
		groups := adsdata.GroupBy(rows, key)
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Rows > groups[j].Rows })
		for _, g := range head(groups, 4) {
			segRows := filterRows(rows, func(r adsdata.Record) bool {
				k := key(r)
				if k == "" {
					k = "unknown"
				}
				return k == g.Key
			})
			rates := stageRates(segRows, stages)
			if len(rates) == 0 {
				continue
			}
			best, worst := rates[0], rates[0]
			for _, st := range rates[1:] {
				if st.ConversionRate > best.ConversionRate {
					best = st
				}
				if st.ConversionRate < worst.ConversionRate {
					worst = st
				}
			}
			out = append(out, SegmentInsight{
				Segment:         col + "：" + g.Key,
				BestStage:       best.Name,
				BestStageRate:   best.ConversionRate,
				WorstStage:      worst.Name,
				WorstStageRate:  worst.ConversionRate,
				SegmentRowCount: g.Rows,
			})
		}
	}
	return out, nil
}
