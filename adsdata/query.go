package adsdata

import (
	"math"
	"sort"
)

// Summary aggregates a set of rows. Ratios are derived from totals, so ROAS is
// spend weighted and CTR is clicks over impressions.
type Summary struct {
	Rows        int     `json:"rows"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`
	Impressions float64 `json:"impressions"`
	Reach       float64 `json:"reach"`
	Clicks      float64 `json:"clicks"`
	Purchases   float64 `json:"purchases"`
	ROAS        float64 `json:"roas"`
	CTR         float64 `json:"ctr"`
	CPA         float64 `json:"cpa"`
	CPM         float64 `json:"cpm"`
	CVR         float64 `json:"conversion_rate"`
}

func Summarize(rows []Record) Summary {
	var s Summary
	for _, r := range rows {
		s.Rows++
		s.Spend += r.Spend
		s.Revenue += r.Revenue()
		s.Impressions += r.Impressions
		s.Reach += r.Reach
		s.Clicks += r.Clicks
		s.Purchases += r.Purchases
	}
	s.ROAS = Ratio(s.Revenue, s.Spend)
	s.CTR = Ratio(s.Clicks, s.Impressions) * 100
	s.CPA = Ratio(s.Spend, s.Purchases)
	s.CPM = Ratio(s.Spend, s.Impressions) * 1000
	s.CVR = Ratio(s.Purchases, s.Clicks) * 100
	s.round()
	return s
}

func (s *Summary) round() {
	s.Spend = Round(s.Spend, 2)
	s.Revenue = Round(s.Revenue, 2)
	s.ROAS = Round(s.ROAS, 2)
	s.CTR = Round(s.CTR, 2)
	s.CPA = Round(s.CPA, 2)
	s.CPM = Round(s.CPM, 2)
	s.CVR = Round(s.CVR, 2)
}

// Group is a keyed summary.
type Group struct {
	Key string `json:"key"`
	Summary
}

// GroupBy aggregates rows per key, ordered by spend descending then key.
// Rows with an empty key are grouped under "unknown".
func GroupBy(rows []Record, key func(Record) string) []Group {
	buckets := map[string][]Record{}
	for _, r := range rows {
		k := key(r)
		if k == "" {
			k = "unknown"
		}
		buckets[k] = append(buckets[k], r)
	}
	groups := make([]Group, 0, len(buckets))
	for k, rs := range buckets {
		groups = append(groups, Group{Key: k, Summary: Summarize(rs)})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Spend != groups[j].Spend {
			return groups[i].Spend > groups[j].Spend
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// Dimension returns a key function for a named column.
func Dimension(name string) (func(Record) string, bool) {
	switch name {
	case "campaign":
		return func(r Record) string { return r.Campaign }, true
	case "ad_set":
		return func(r Record) string { return r.AdSet }, true
	case "ad_name", "ad":
		return func(r Record) string { return r.AdName }, true
	case "headline":
		return func(r Record) string { return r.Headline }, true
	case "objective":
		return func(r Record) string { return r.Objective }, true
	case "age":
		return func(r Record) string { return r.Age }, true
	case "gender":
		return func(r Record) string { return r.Gender }, true
	case "region":
		return func(r Record) string { return r.Region }, true
	case "device":
		return func(r Record) string { return r.Device }, true
	case "audience":
		return func(r Record) string { return joinNonEmpty(r.Age, r.Gender) }, true
	}
	return nil, false
}

// Percentile returns the p-th percentile (0-100) using linear interpolation.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Ratio returns a/b, or 0 when b is 0.
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
