package tools

import (
	"context"

	"adsdash/agent-app/adsdata"
)

type BudgetSummary struct {
	TotalSpend    float64 `json:"total_spend"`
	TotalRevenue  float64 `json:"total_revenue"`
	OverallROAS   float64 `json:"overall_roas"`
	TotalProfit   float64 `json:"total_profit"`
	CampaignCount int     `json:"campaign_count"`
}

func ComputeBudgetSummary(ctx context.Context, deps *Deps, _ NoArgs) (BudgetSummary, error) {
	rows, err := deps.records()
	if err != nil {
		return BudgetSummary{}, err
	}
	s := adsdata.Summarize(rows)
	return BudgetSummary{
		TotalSpend:    s.Spend,
		TotalRevenue:  s.Revenue,
		OverallROAS:   s.ROAS,
		TotalProfit:   adsdata.Round(s.Revenue-s.Spend, 2),
		CampaignCount: len(campaignStats(rows)),
	}, nil
}

func GroupSpendByCampaign(ctx context.Context, deps *Deps, _ NoArgs) ([]CampaignStat, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	return campaignStats(rows), nil
}

// BudgetMove is a campaign's average spend per row and its ROAS.
type BudgetMove struct {
	Campaign     string  `json:"campaign"`
	AverageSpend float64 `json:"avg_spend"`
	ROAS         float64 `json:"roas"`
}

func budgetMoves(rows []adsdata.Record, keep func(BudgetMove) bool) []BudgetMove {
	key, _ := adsdata.Dimension("campaign")
	out := []BudgetMove{}
	for _, g := range adsdata.GroupBy(rows, key) {
		m := BudgetMove{Campaign: g.Key, AverageSpend: adsdata.Round(g.Spend/float64(g.Rows), 2), ROAS: g.ROAS}
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// DetectIncreaseTargets finds on-target campaigns whose average spend is
// below the increase threshold.
func DetectIncreaseTargets(ctx context.Context, deps *Deps, _ NoArgs) ([]BudgetMove, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	threshold := valueOr(deps.Settings.IncreaseThreshold, 1000)
	target := deps.targetROAS()
	return budgetMoves(rows, func(m BudgetMove) bool {
		return m.AverageSpend < threshold && m.ROAS >= target
	}), nil
}

// DetectDecreaseTargets finds campaigns spending at least the decrease
// threshold on average while under 60% of the target ROAS.
func DetectDecreaseTargets(ctx context.Context, deps *Deps, _ NoArgs) ([]BudgetMove, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	threshold := valueOr(deps.Settings.DecreaseThreshold, 3000)
	floor := deps.targetROAS() * 0.6
	return budgetMoves(rows, func(m BudgetMove) bool {
		return m.AverageSpend >= threshold && m.ROAS < floor
	}), nil
}
