package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"adsdash/agent-app/adsdata"
)

type PeriodMetrics struct {
	Current  adsdata.Summary  `json:"current_metrics"`
	Previous *adsdata.Summary `json:"previous_metrics,omitempty"`
}

// currentPeriod returns the rows of the requested period. A missing period
// defaults to the last seven days of the dataset.
func (d *Deps) currentPeriod() ([]adsdata.Record, time.Time, time.Time, error) {
	if _, err := d.records(); err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	start, end := d.Settings.CurrentStart, d.Settings.CurrentEnd
	if start.IsZero() || end.IsZero() {
		_, last := d.Data.DateRange()
		end = last
		start = last.AddDate(0, 0, -6)
	}
	return d.Data.Between(start, end), start, end, nil
}

func ComputePeriodMetrics(ctx context.Context, deps *Deps, _ NoArgs) (PeriodMetrics, error) {
	rows, _, _, err := deps.currentPeriod()
	if err != nil {
		return PeriodMetrics{}, err
	}
	out := PeriodMetrics{Current: adsdata.Summarize(rows)}
	if ps, pe := deps.Settings.PreviousStart, deps.Settings.PreviousEnd; !ps.IsZero() && !pe.IsZero() {
		prev := adsdata.Summarize(deps.Data.Between(ps, pe))
		out.Previous = &prev
	}
	return out, nil
}

type PeriodCampaigns struct {
	TopCampaigns []CampaignStat `json:"top_campaigns"`
	LowCampaigns []CampaignStat `json:"low_campaigns"`
}

// CampaignPerformance returns the five best campaigns of the period by ROAS
// and the five worst among those spending at least the median.
func CampaignPerformance(ctx context.Context, deps *Deps, _ NoArgs) (PeriodCampaigns, error) {
	rows, _, _, err := deps.currentPeriod()
	if err != nil {
		return PeriodCampaigns{}, err
	}
	out := PeriodCampaigns{TopCampaigns: []CampaignStat{}, LowCampaigns: []CampaignStat{}}
	if len(rows) == 0 {
		return out, nil
	}
	stats := campaignStats(rows)
	spend := make([]float64, len(stats))
	for i, s := range stats {
		spend[i] = s.Spend
	}
	median := adsdata.Percentile(spend, 50)

	top := append([]CampaignStat(nil), stats...)
	sortStats(top, func(s CampaignStat) float64 { return s.ROAS })
	out.TopCampaigns = head(top, 5)

	var low []CampaignStat
	for _, s := range stats {
		if s.Spend >= median {
			low = append(low, s)
		}
	}
	sortStats(low, func(s CampaignStat) float64 { return -s.ROAS })
	out.LowCampaigns = append(out.LowCampaigns, head(low, 5)...)
	return out, nil
}

type ReportEvent struct {
	Type     string   `json:"type"`
	Count    int      `json:"count,omitempty"`
	Examples []string `json:"examples,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// DetectEvents reports campaigns first seen in the period and days whose
// spend exceeds 1.5 times the period's daily average.
func DetectEvents(ctx context.Context, deps *Deps, _ NoArgs) ([]ReportEvent, error) {
	rows, start, _, err := deps.currentPeriod()
	if err != nil {
		return nil, err
	}
	events := []ReportEvent{}
	if len(rows) == 0 {
		return events, nil
	}

	firstSeen := map[string]time.Time{}
	for _, r := range deps.Data.Records() {
		if r.Start.IsZero() {
			continue
		}
		if t, ok := firstSeen[r.Campaign]; !ok || r.Start.Before(t) {
			firstSeen[r.Campaign] = r.Start
		}
	}
	var fresh []string
	for _, s := range campaignStats(rows) {
		if t, ok := firstSeen[s.Campaign]; ok && !t.Before(start) {
			fresh = append(fresh, s.Campaign)
		}
	}
	if len(fresh) > 0 {
		events = append(events, ReportEvent{Type: "新活動上線", Count: len(fresh), Examples: head(fresh, 3)})
	}

	daily := map[string]float64{}
	for _, r := range rows {
		daily[r.Start.Format("2006-01-02")] += r.Spend
	}
	days := make([]string, 0, len(daily))
	values := make([]float64, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	maxDay, maxSpend := "", 0.0
	for _, d := range days {
		values = append(values, daily[d])
		if daily[d] > maxSpend {
			maxDay, maxSpend = d, daily[d]
		}
	}
	if avg := adsdata.Mean(values); maxSpend > avg*1.5 {
		events = append(events, ReportEvent{
			Type:   "預算異常",
			Detail: fmt.Sprintf("%s 單日花費 %.0f (平均 %.0f)", maxDay, maxSpend, avg),
		})
	}
	return events, nil
}
