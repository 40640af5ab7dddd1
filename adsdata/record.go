// Package adsdata holds the ad performance dataset the agents reason over.
package adsdata

import (
	"sort"
	"time"
)

// Record is one row of a Meta Ads performance export.
type Record struct {
	Campaign  string `json:"campaign"`
	AdSet     string `json:"ad_set,omitempty"`
	AdName    string `json:"ad_name,omitempty"`
	Headline  string `json:"headline,omitempty"`
	Body      string `json:"body,omitempty"`
	CTA       string `json:"cta,omitempty"`
	Objective string `json:"objective,omitempty"`
	Age       string `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Region    string `json:"region,omitempty"`
	Device    string `json:"device,omitempty"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitempty"`

	Spend            float64 `json:"spend"`
	Impressions      float64 `json:"impressions"`
	Reach            float64 `json:"reach"`
	Clicks           float64 `json:"clicks"`
	LandingPageViews float64 `json:"landing_page_views"`
	ContentViews     float64 `json:"content_views"`
	AddToCart        float64 `json:"add_to_cart"`
	Checkouts        float64 `json:"checkouts"`
	Purchases        float64 `json:"purchases"`
	ROAS             float64 `json:"roas"`
	CTR              float64 `json:"ctr"`
	CPA              float64 `json:"cpa"`
	CPM              float64 `json:"cpm"`
	Frequency        float64 `json:"frequency"`

	QualityRanking    string `json:"quality_ranking,omitempty"`
	EngagementRanking string `json:"engagement_ranking,omitempty"`
	ConversionRanking string `json:"conversion_ranking,omitempty"`
}

// Revenue is purchase value implied by spend and ROAS.
func (r Record) Revenue() float64 {
	return r.Spend * r.ROAS
}

// Dataset is an immutable set of records. Methods never modify the receiver.
type Dataset struct {
	records []Record
	loaded  time.Time
	source  string
}

func New(records []Record) *Dataset {
	cloned := make([]Record, len(records))
	copy(cloned, records)
	return &Dataset{records: cloned, loaded: time.Now()}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns a copy of all rows.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return append([]Record(nil), d.records...)
}

func (d *Dataset) Source() string {
	return d.source
}

func (d *Dataset) LoadedAt() time.Time {
	return d.loaded
}

// Filter returns the rows matching keep, in dataset order.
func (d *Dataset) Filter(keep func(Record) bool) []Record {
	if d == nil {
		return nil
	}
	var out []Record
	for _, r := range d.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Between returns rows whose start date falls in [from, to], compared by day.
func (d *Dataset) Between(from, to time.Time) []Record {
	from = truncateDay(from)
	to = truncateDay(to)
	return d.Filter(func(r Record) bool {
		if r.Start.IsZero() {
			return false
		}
		day := truncateDay(r.Start)
		return !day.Before(from) && !day.After(to)
	})
}

// DateRange returns the earliest and latest start dates.
func (d *Dataset) DateRange() (time.Time, time.Time) {
	var first, last time.Time
	if d == nil {
		return first, last
	}
	for _, r := range d.records {
		if r.Start.IsZero() {
			continue
		}
		if first.IsZero() || r.Start.Before(first) {
			first = r.Start
		}
		if r.Start.After(last) {
			last = r.Start
		}
	}
	return first, last
}

// Top returns up to n rows ordered by score descending. Ties keep dataset order.
func Top(rows []Record, n int, score func(Record) float64) []Record {
	sorted := append([]Record(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return score(sorted[i]) > score(sorted[j]) })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Bottom returns up to n rows ordered by score ascending.
func Bottom(rows []Record, n int, score func(Record) float64) []Record {
	sorted := append([]Record(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return score(sorted[i]) < score(sorted[j]) })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RankingScore maps a Meta ranking label to 3 (above average), 2 (average),
// 1 (below average) or 0 (unknown).
func RankingScore(label string) float64 {
	switch label {
	case "平均以上", "Above Average", "Above average":
		return 3
	case "平均", "Average":
		return 2
	case "平均以下", "Below Average", "Below average":
		return 1
	}
	return 0
}

// QualityScore weights the conversion ranking at half and the quality and
// engagement rankings at a quarter each.
func (r Record) QualityScore() float64 {
	return RankingScore(r.QualityRanking)*0.25 +
		RankingScore(r.EngagementRanking)*0.25 +
		RankingScore(r.ConversionRanking)*0.5
}
