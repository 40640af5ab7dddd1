package tools

import (
	"context"

	"adsdash/agent-app/adsdata"
)

type CoreAudience struct {
	Age         string  `json:"age"`
	Gender      string  `json:"gender"`
	Interest    string  `json:"interest"`
	ROAS        float64 `json:"roas"`
	CTR         float64 `json:"ctr"`
	Spend       float64 `json:"spend"`
	Conversions float64 `json:"conversions"`
}

// SummarizeCoreAudiences ranks age, gender and objective combinations by ROAS.
func SummarizeCoreAudiences(ctx context.Context, deps *Deps, _ NoArgs) ([]CoreAudience, error) {
	rows, err := deps.records()
	if err != nil {
		return nil, err
	}
	type combo struct{ age, gender, objective string }
	keys := map[string]combo{}
	groups := adsdata.GroupBy(rows, func(r adsdata.Record) string {
		k := r.Age + "|" + r.Gender + "|" + r.Objective
		keys[k] = combo{r.Age, r.Gender, r.Objective}
		return k
	})
	out := []CoreAudience{}
	for _, g := range groups {
		c := keys[g.Key]
		out = append(out, CoreAudience{
			Age: c.age, Gender: c.gender, Interest: c.objective,
			ROAS: g.ROAS, CTR: g.CTR, Spend: g.Spend, Conversions: g.Purchases,
		})
	}
	sortBy(out, func(a CoreAudience) float64 { return a.ROAS })
	return head(out, 10), nil
}

type AudienceDistribution struct {
	Goal   []LabelCount `json:"goal"`
	Region []LabelCount `json:"region"`
	Device []LabelCount `json:"device"`
}

func FetchAudienceDistribution(ctx context.Context, deps *Deps, _ NoArgs) (AudienceDistribution, error) {
	rows, err := deps.records()
	if err != nil {
		return AudienceDistribution{}, err
	}
	return AudienceDistribution{
		Goal:   topValues(rows, func(r adsdata.Record) string { return r.Objective }, 20),
		Region: topValues(rows, func(r adsdata.Record) string { return r.Region }, 20),
		Device: topValues(rows, func(r adsdata.Record) string { return r.Device }, 20),
	}, nil
}

type OverallSummary struct {
	adsdata.Summary
	Campaigns int       `json:"campaigns"`
	DateRange DateRange `json:"date_range"`
}

// GetOverallSummary is the chat assistant's view of the whole account.
func GetOverallSummary(ctx context.Context, deps *Deps, _ NoArgs) (OverallSummary, error) {
	rows, err := deps.records()
	if err != nil {
		return OverallSummary{}, err
	}
	return OverallSummary{
		Summary:   adsdata.Summarize(rows),
		Campaigns: len(campaignStats(rows)),
		DateRange: dateRange(deps.Data),
	}, nil
}
