package tools

import (
	"context"
	"sort"

	"adsdash/agent-app/adsdata"
)

type RankingCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type QualityDistribution struct {
	Quality    []RankingCount `json:"quality_ranking"`
	Engagement []RankingCount `json:"engagement_ranking"`
	Conversion []RankingCount `json:"conversion_ranking"`
}

func ComputeQualityDistribution(ctx context.Context, deps *Deps, _ NoArgs) (QualityDistribution, error) {
	rows, err := deps.records()
	if err != nil {
		return QualityDistribution{}, err
	}
	return QualityDistribution{
		Quality:    countLabels(rows, func(r adsdata.Record) string { return r.QualityRanking }),
		Engagement: countLabels(rows, func(r adsdata.Record) string { return r.EngagementRanking }),
		Conversion: countLabels(rows, func(r adsdata.Record) string { return r.ConversionRanking }),
	}, nil
}

// countLabels counts values most frequent first. Empty values count as 未知.
func countLabels(rows []adsdata.Record, label func(adsdata.Record) string) []RankingCount {
	counts := map[string]int{}
	for _, r := range rows {
		l := label(r)
		if l == "" || l == "-" {
			l = "未知"
		}
		counts[l]++
	}
	out := make([]RankingCount, 0, len(counts))
	for l, n := range counts {
		out = append(out, RankingCount{Label: l, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

type ScoreStats struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
}

// ComputeScoreStats summarizes the numeric ranking scores (0-3) and the
// weighted composite score.
func ComputeScoreStats(ctx context.Context, deps *Deps, _ NoArgs) ([]ScoreStats, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	scores := []struct {
		name  string
		value func(adsdata.Record) float64
	}{
		{"quality_score", func(r adsdata.Record) float64 { return adsdata.RankingScore(r.QualityRanking) }},
		{"engagement_score", func(r adsdata.Record) float64 { return adsdata.RankingScore(r.EngagementRanking) }},
		{"conversion_score", func(r adsdata.Record) float64 { return adsdata.RankingScore(r.ConversionRanking) }},
		{"composite_score", adsdata.Record.QualityScore},
	}
	out := make([]ScoreStats, 0, len(scores))
	for _, s := range scores {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = s.value(r)
		}
		out = append(out, ScoreStats{
			Name:   s.name,
			Mean:   adsdata.Round(adsdata.Mean(values), 2),
			Median: adsdata.Round(adsdata.Percentile(values, 50), 2),
			Max:    adsdata.Percentile(values, 100),
			Min:    adsdata.Percentile(values, 0),
		})
	}
	return out, nil
}

type LowQualityAd struct {
	AdName         string  `json:"ad_name"`
	Campaign       string  `json:"campaign"`
	Spend          float64 `json:"spend"`
	ROAS           float64 `json:"roas"`
	CTR            float64 `json:"ctr"`
	EngagementRank string  `json:"engagement_rank,omitempty"`
	ConversionRank string  `json:"conversion_rank,omitempty"`
}

// DetectLowQualityAds lists up to twenty ads ranked below average for quality.
func DetectLowQualityAds(ctx context.Context, deps *Deps, _ NoArgs) ([]LowQualityAd, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	out := []LowQualityAd{}
	for _, r := range rows {
		if adsdata.RankingScore(r.QualityRanking) != 1 {
			continue
		}
		name := r.AdName
		if name == "" {
			name = "未知"
		}
		out = append(out, LowQualityAd{
			AdName:         name,
			Campaign:       r.Campaign,
			Spend:          r.Spend,
			ROAS:           r.ROAS,
			CTR:            r.CTR,
			EngagementRank: r.EngagementRanking,
			ConversionRank: r.ConversionRanking,
		})
		if len(out) == 20 {
			break
		}
	}
	return out, nil
}
