package tools

import (
	"context"
	"errors"

	"adsdash/agent-app/adsdata"
)

type LabelCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type OurAds struct {
	AverageROAS  float64      `json:"avg_roas"`
	AverageCTR   float64      `json:"avg_ctr"`
	TopHeadlines []LabelCount `json:"top_headlines"`
	TopTargets   []LabelCount `json:"top_targets"`
}

func SummarizeOurAds(ctx context.Context, deps *Deps, _ NoArgs) (OurAds, error) {
	rows, err := deps.records()
	if err != nil {
		return OurAds{}, err
	}
	s := adsdata.Summarize(rows)
	return OurAds{
		AverageROAS:  s.ROAS,
		AverageCTR:   s.CTR,
		TopHeadlines: topValues(rows, func(r adsdata.Record) string { return r.Headline }, 5),
		TopTargets:   topValues(rows, func(r adsdata.Record) string { return r.Objective }, 5),
	}, nil
}

// topValues counts non-empty values, most frequent first.
func topValues(rows []adsdata.Record, value func(adsdata.Record) string, n int) []LabelCount {
	var present []adsdata.Record
	for _, r := range rows {
		if value(r) != "" {
			present = append(present, r)
		}
	}
	counts := countLabels(present, value)
	out := make([]LabelCount, 0, n)
	for _, c := range head(counts, n) {
		out = append(out, LabelCount{Value: c.Label, Count: c.Count})
	}
	return out
}

// SummarizeCompetitors returns up to ten supplied competitor ads with bodies
// cut to 250 characters.
func SummarizeCompetitors(ctx context.Context, deps *Deps, _ NoArgs) ([]CompetitorAd, error) {
	out := []CompetitorAd{}
	for _, ad := range head(deps.Settings.CompetitorAds, 10) {
		if ad.Brand == "" {
			ad.Brand = "未知"
		}
		if r := []rune(ad.Body); len(r) > 250 {
			ad.Body = string(r[:250])
		}
		out = append(out, ad)
	}
	return out, nil
}

type PageScan struct {
	Pages  []PageSummary `json:"pages"`
	Failed []string      `json:"failed,omitempty"`
}

// ScanCompetitorPages fetches up to five competitor landing pages. Pages that
// fail are listed; the tool fails only when every page fails.
func ScanCompetitorPages(ctx context.Context, deps *Deps, _ NoArgs) (PageScan, error) {
	urls := head(deps.Settings.CompetitorURLs, 5)
	out := PageScan{Pages: []PageSummary{}}
	if len(urls) == 0 {
		return out, nil
	}
	if deps.Pages == nil {
		return PageScan{}, ErrNoPageFetcher
	}
	var errs []error
	for _, u := range urls {
		page, err := deps.Pages.FetchPage(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return PageScan{}, ctx.Err()
			}
			errs = append(errs, err)
			out.Failed = append(out.Failed, u)
			continue
		}
		out.Pages = append(out.Pages, page)
	}
	if len(out.Pages) == 0 {
		return PageScan{}, errors.Join(errs...)
	}
	return out, nil
}
