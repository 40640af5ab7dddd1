package tools

import (
	"context"

	"adsdash/agent-app/adsdata"
)

type StrategySnapshot struct {
	Available     bool    `json:"available"`
	TotalSpend    float64 `json:"total_spend,omitempty"`
	TotalPurchase float64 `json:"total_purchase,omitempty"`
	AverageROAS   float64 `json:"avg_roas,omitempty"`
	AverageCTR    float64 `json:"avg_ctr,omitempty"`
	DateSpan      string  `json:"date_span,omitempty"`
}

// AccountSnapshotTool reports totals for strategy planning. An empty dataset
// is reported as unavailable rather than failing the run.
func AccountSnapshotTool(ctx context.Context, deps *Deps, _ NoArgs) (StrategySnapshot, error) {
	rows, err := deps.records()
	if err != nil {
		return StrategySnapshot{}, nil
	}
	s := adsdata.Summarize(rows)
	out := StrategySnapshot{
		Available:     true,
		TotalSpend:    s.Spend,
		TotalPurchase: s.Purchases,
		AverageROAS:   s.ROAS,
		AverageCTR:    s.CTR,
	}
	if r := dateRange(deps.Data); r.Start != "" {
		out.DateSpan = r.Start + " ~ " + r.End
	}
	return out, nil
}

type AdHighlight struct {
	Campaign string  `json:"campaign"`
	AdName   string  `json:"ad_name,omitempty"`
	Headline string  `json:"headline,omitempty"`
	ROAS     float64 `json:"roas"`
	Spend    float64 `json:"spend"`
}

func CampaignHighlights(ctx context.Context, deps *Deps, _ NoArgs) ([]AdHighlight, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	out := []AdHighlight{}
	for _, r := range adsdata.Top(rows, 5, func(r adsdata.Record) float64 { return r.ROAS }) {
		out = append(out, AdHighlight{Campaign: r.Campaign, AdName: r.AdName, Headline: r.Headline, ROAS: r.ROAS, Spend: r.Spend})
	}
	return out, nil
}

type AudienceBreakdown struct {
	ByAudience []adsdata.Group `json:"by_audience"`
	ByRegion   []adsdata.Group `json:"by_region"`
}

func AudienceBreakdownTool(ctx context.Context, deps *Deps, _ NoArgs) (AudienceBreakdown, error) {
	rows, err := deps.records()
	if err != nil {
		return AudienceBreakdown{}, err
	}
	audience, _ := adsdata.Dimension("audience")
	region, _ := adsdata.Dimension("region")
	return AudienceBreakdown{
		ByAudience: head(adsdata.GroupBy(rows, audience), 10),
		ByRegion:   head(adsdata.GroupBy(filterRows(rows, func(r adsdata.Record) bool { return r.Region != "" }), region), 10),
	}, nil
}

type GoalContext struct {
	BusinessGoals   []string `json:"business_goals"`
	PlanningHorizon string   `json:"planning_horizon"`
	TotalBudget     float64  `json:"total_budget"`
	Constraints     []string `json:"inventory_constraints"`
}

func GoalContextTool(ctx context.Context, deps *Deps, _ NoArgs) (GoalContext, error) {
	p := deps.Settings.Planning
	return GoalContext{
		BusinessGoals:   nonNil(p.BusinessGoals),
		PlanningHorizon: p.Horizon,
		TotalBudget:     p.TotalBudget,
		Constraints:     nonNil(p.Constraints),
	}, nil
}

type MarketSignals struct {
	Forecast string `json:"market_forecast"`
	Notes    string `json:"notes"`
	Season   string `json:"season"`
}

func MarketSignalsTool(ctx context.Context, deps *Deps, _ NoArgs) (MarketSignals, error) {
	season, _ := GetSeasonalThemes(ctx, deps, NoArgs{})
	return MarketSignals{
		Forecast: deps.Settings.Planning.MarketForecast,
		Notes:    deps.Settings.Planning.Notes,
		Season:   season.Season,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
