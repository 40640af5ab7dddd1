package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"adsdash/agent-app/adsdata"
)

// CampaignStat is the per-campaign rollup most tools share.
type CampaignStat struct {
	Campaign       string  `json:"campaign"`
	Spend          float64 `json:"spend"`
	ROAS           float64 `json:"roas"`
	Purchases      float64 `json:"purchases"`
	CTR            float64 `json:"ctr"`
	CPA            float64 `json:"cpa"`
	ConversionRate float64 `json:"conversion_rate"`
	Reach          float64 `json:"reach"`
}

func campaignStats(rows []adsdata.Record) []CampaignStat {
	key, _ := adsdata.Dimension("campaign")
	groups := adsdata.GroupBy(rows, key)
	stats := make([]CampaignStat, 0, len(groups))
	for _, g := range groups {
		stats = append(stats, statFromGroup(g))
	}
	return stats
}

func statFromGroup(g adsdata.Group) CampaignStat {
	return CampaignStat{
		Campaign:       g.Key,
		Spend:          g.Spend,
		ROAS:           g.ROAS,
		Purchases:      g.Purchases,
		CTR:            g.CTR,
		CPA:            g.CPA,
		ConversionRate: g.CVR,
		Reach:          g.Reach,
	}
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func dateRange(d *adsdata.Dataset) DateRange {
	first, last := d.DateRange()
	var r DateRange
	if !first.IsZero() {
		r.Start = first.Format("2006-01-02")
	}
	if !last.IsZero() {
		r.End = last.Format("2006-01-02")
	}
	return r
}

type AccountSummary struct {
	TotalCampaigns int       `json:"total_campaigns"`
	TotalSpend     float64   `json:"total_spend"`
	TotalPurchases float64   `json:"total_purchases"`
	TotalRevenue   float64   `json:"total_revenue"`
	AverageROAS    float64   `json:"average_roas"`
	MedianROAS     float64   `json:"median_roas"`
	AverageCTR     float64   `json:"average_ctr"`
	AverageCPA     float64   `json:"average_cpa"`
	DateRange      DateRange `json:"date_range"`
}

// GetAllCampaignsSummary reports account totals over the whole dataset.
func GetAllCampaignsSummary(ctx context.Context, deps *Deps, _ NoArgs) (AccountSummary, error) {
	rows, err := deps.records()
	if err != nil {
		return AccountSummary{}, err
	}
	total := adsdata.Summarize(rows)
	stats := campaignStats(rows)
	roas := make([]float64, len(stats))
	for i, s := range stats {
		roas[i] = s.ROAS
	}
	return AccountSummary{
		TotalCampaigns: len(stats),
		TotalSpend:     total.Spend,
		TotalPurchases: total.Purchases,
		TotalRevenue:   total.Revenue,
		AverageROAS:    total.ROAS,
		MedianROAS:     adsdata.Round(adsdata.Percentile(roas, 50), 2),
		AverageCTR:     total.CTR,
		AverageCPA:     total.CPA,
		DateRange:      dateRange(deps.Data),
	}, nil
}

type LimitArgs struct {
	Limit int `json:"limit,omitempty" jsonschema_description:"Maximum number of campaigns to return" jsonschema:"minimum=1,maximum=100"`
}

func (a LimitArgs) or(def int) int {
	if a.Limit <= 0 {
		return def
	}
	return a.Limit
}

// GetCampaignPerformance lists campaigns by spend.
func GetCampaignPerformance(ctx context.Context, deps *Deps, args LimitArgs) ([]CampaignStat, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	stats := campaignStats(rows)
	if n := args.or(50); len(stats) > n {
		stats = stats[:n]
	}
	return stats, nil
}

type LowROASCampaign struct {
	CampaignStat
	GapToTarget float64 `json:"gap_to_target"`
}

// IdentifyLowROASCampaigns finds campaigns under the target ROAS that spent
// at least the minimum campaign spend, largest spend first.
func IdentifyLowROASCampaigns(ctx context.Context, deps *Deps, _ NoArgs) ([]LowROASCampaign, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	target := deps.targetROAS()
	minSpend := valueOr(deps.Settings.MinCampaignSpend, 1000)
	out := []LowROASCampaign{}
	for _, s := range campaignStats(rows) {
		if s.ROAS < target && s.Spend >= minSpend {
			out = append(out, LowROASCampaign{CampaignStat: s, GapToTarget: adsdata.Round(target-s.ROAS, 2)})
		}
	}
	return out, nil
}

type RiskAmount struct {
	TotalLowROASSpend float64 `json:"total_low_roas_spend"`
	CurrentRevenue    float64 `json:"current_revenue"`
	PotentialRevenue  float64 `json:"potential_revenue"`
	EstimatedWaste    float64 `json:"estimated_waste"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
}

// CalculateRiskAmount estimates revenue lost to rows below the target ROAS.
func CalculateRiskAmount(ctx context.Context, deps *Deps, _ NoArgs) (RiskAmount, error) {
	rows, err := deps.records()
	if err != nil {
		return RiskAmount{}, err
	}
	target := deps.targetROAS()
	var lowSpend, current, total float64
	for _, r := range rows {
		total += r.Spend
		if r.ROAS < target {
			lowSpend += r.Spend
			current += r.Revenue()
		}
	}
	potential := lowSpend * target
	return RiskAmount{
		TotalLowROASSpend: adsdata.Round(lowSpend, 2),
		CurrentRevenue:    adsdata.Round(current, 2),
		PotentialRevenue:  adsdata.Round(potential, 2),
		EstimatedWaste:    adsdata.Round(potential-current, 2),
		PercentageOfTotal: adsdata.Round(adsdata.Ratio(lowSpend, total)*100, 2),
	}, nil
}

type QueryCampaignArgs struct {
	CampaignName string `json:"campaign_name" jsonschema_description:"Full or partial campaign name" jsonschema:"required"`
}

type CampaignDetail struct {
	Found   bool           `json:"found"`
	Matches []CampaignStat `json:"matches"`
}

// QueryCampaign finds campaigns whose name contains the query, case-insensitively.
func QueryCampaign(ctx context.Context, deps *Deps, args QueryCampaignArgs) (CampaignDetail, error) {
	rows, err := deps.records()
	if err != nil {
		return CampaignDetail{}, err
	}
	q := strings.ToLower(strings.TrimSpace(args.CampaignName))
	if q == "" {
		return CampaignDetail{}, fmt.Errorf("campaign_name is empty")
	}
	matches := []CampaignStat{}
	for _, s := range campaignStats(rows) {
		if strings.Contains(strings.ToLower(s.Campaign), q) {
			matches = append(matches, s)
		}
	}
	return CampaignDetail{Found: len(matches) > 0, Matches: matches}, nil
}

// GetTopCampaigns lists campaigns by ROAS, highest first.
func GetTopCampaigns(ctx context.Context, deps *Deps, args LimitArgs) ([]CampaignStat, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	stats := campaignStats(rows)
	sortStats(stats, func(s CampaignStat) float64 { return s.ROAS })
	if n := args.or(5); len(stats) > n {
		stats = stats[:n]
	}
	return stats, nil
}

type AccountSnapshot struct {
	AccountSummary
	ActiveObjectives []string       `json:"active_objectives"`
	TopCampaigns     []CampaignStat `json:"top_campaigns"`
	BottomCampaigns  []CampaignStat `json:"bottom_campaigns"`
}

// ComputeAccountSnapshot extends the account summary with best and worst campaigns.
func ComputeAccountSnapshot(ctx context.Context, deps *Deps, _ NoArgs) (AccountSnapshot, error) {
	summary, err := GetAllCampaignsSummary(ctx, deps, NoArgs{})
	if err != nil {
		return AccountSnapshot{}, err
	}
	rows, _ := deps.records()
	stats := campaignStats(rows)
	sortStats(stats, func(s CampaignStat) float64 { return s.ROAS })
	snap := AccountSnapshot{AccountSummary: summary, TopCampaigns: head(stats, 3)}
	for i := len(stats) - 1; i >= 0 && len(snap.BottomCampaigns) < 3; i-- {
		snap.BottomCampaigns = append(snap.BottomCampaigns, stats[i])
	}
	objKey, _ := adsdata.Dimension("objective")
	for _, g := range adsdata.GroupBy(rows, objKey) {
		snap.ActiveObjectives = append(snap.ActiveObjectives, g.Key)
	}
	return snap, nil
}

type UrgentCampaign struct {
	CampaignStat
	Reasons []string `json:"reasons"`
}

// IdentifyUrgent flags campaigns far below target ROAS or above the CPA ceiling.
func IdentifyUrgent(ctx context.Context, deps *Deps, _ NoArgs) ([]UrgentCampaign, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	target, maxCPA := deps.targetROAS(), deps.maxCPA()
	out := []UrgentCampaign{}
	for _, s := range campaignStats(rows) {
		var reasons []string
		if s.ROAS < target*0.6 {
			reasons = append(reasons, "roas far below target")
		}
		if s.CPA > maxCPA*1.2 {
			reasons = append(reasons, "cpa above ceiling")
		}
		if len(reasons) > 0 {
			out = append(out, UrgentCampaign{CampaignStat: s, Reasons: reasons})
		}
	}
	return out, nil
}

// DiscoverOpportunities finds on-target campaigns that are still underfunded.
func DiscoverOpportunities(ctx context.Context, deps *Deps, _ NoArgs) ([]CampaignStat, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	ceiling := valueOr(deps.Settings.MinDailyBudget, 1000) * 5
	out := []CampaignStat{}
	for _, s := range campaignStats(rows) {
		if s.ROAS >= deps.targetROAS() && s.Spend < ceiling {
			out = append(out, s)
		}
	}
	sortStats(out, func(s CampaignStat) float64 { return s.ROAS })
	return out, nil
}

// AnalyzeBudget returns the fifteen largest campaigns by spend with their share.
func AnalyzeBudget(ctx context.Context, deps *Deps, _ NoArgs) ([]BudgetShare, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	return budgetShares(rows, 15), nil
}

type BudgetShare struct {
	Campaign string  `json:"campaign"`
	Spend    float64 `json:"spend"`
	ROAS     float64 `json:"roas"`
	Share    float64 `json:"share_percent"`
}

func budgetShares(rows []adsdata.Record, n int) []BudgetShare {
	total := adsdata.Summarize(rows).Spend
	stats := campaignStats(rows)
	out := make([]BudgetShare, 0, len(stats))
	for _, s := range head(stats, n) {
		out = append(out, BudgetShare{
			Campaign: s.Campaign,
			Spend:    s.Spend,
			ROAS:     s.ROAS,
			Share:    adsdata.Round(adsdata.Ratio(s.Spend, total)*100, 2),
		})
	}
	return out
}

// sortBy orders by score descending; ties keep their input order.
func sortBy[T any](items []T, score func(T) float64) {
	sort.SliceStable(items, func(i, j int) bool { return score(items[i]) > score(items[j]) })
}

func sortStats(stats []CampaignStat, score func(CampaignStat) float64) {
	sortBy(stats, score)
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
