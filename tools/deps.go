// Package tools holds the named data functions agents may call during a run.
// Every tool is a pure function of its *Deps and arguments.
package tools

import (
	"context"
	"errors"
	"time"

	"adsdash/agent-app/adsdata"
)

var (
	ErrNoData         = errors.New("no ad performance data loaded")
	ErrNoImage        = errors.New("no image attached to this run")
	ErrNoVision       = errors.New("vision model not configured")
	ErrNoPageFetcher  = errors.New("page fetching not configured")
	ErrNoKnowledge    = errors.New("knowledge base not configured")
	ErrRateOutOfRange = errors.New("conversion rate out of range")
)

// Searcher finds knowledge snippets similar to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Snippet, error)
}

type Snippet struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Vision describes an image given a prompt.
type Vision interface {
	Describe(ctx context.Context, data []byte, mimeType string, prompt string) (string, error)
}

// PageFetcher loads a public web page summary.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (PageSummary, error)
}

type PageSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Headings    []string `json:"headings"`
	CallsToAct  []string `json:"calls_to_action"`
}

type Image struct {
	MIMEType string
	Data     []byte
}

// Brand is the advertiser profile the creative tools speak for.
type Brand struct {
	Name            string   `json:"name" yaml:"name"`
	Category        string   `json:"category" yaml:"category"`
	Values          string   `json:"values" yaml:"values"`
	ToneExamples    []string `json:"tone_examples" yaml:"tone_examples"`
	Avoid           []string `json:"avoid" yaml:"avoid"`
	Differentiators []string `json:"differentiators" yaml:"differentiators"`
	Colors          []string `json:"colors" yaml:"colors"`
	VisualStyle     []string `json:"visual_style" yaml:"visual_style"`
	VisualAvoid     []string `json:"visual_avoid" yaml:"visual_avoid"`
}

func DefaultBrand() Brand {
	return Brand{
		Name:         "耘初茶食",
		Category:     "台灣茶飲、茶食產品",
		Values:       "傳統工藝與現代創新結合，注重健康養生",
		ToneExamples: []string{"溫暖親切、專業可信", "強調傳統工藝與現代創新", "重視健康養生", "台灣在地品牌自豪感"},
		Avoid:        []string{"過於商業化的推銷語言", "浮誇不實的宣傳", "缺乏溫度的機械式文案"},
		Differentiators: []string{
			"傳統工藝與現代創新", "健康養生訴求", "高品質茶葉", "在地品牌",
		},
		Colors:      []string{"茶綠 (tea green)", "米白 (cream white)", "木質棕 (wood brown)", "點綴的深色 (dark brown, black)"},
		VisualStyle: []string{"自然光", "簡約構圖", "手作質感", "溫暖色調"},
		VisualAvoid: []string{"過於商業化、促銷感太重", "低品質、粗糙的視覺", "與健康養生無關的元素"},
	}
}

// Settings carries the per-run parameters some tools read. A nil spend
// threshold means the tool default; an explicit 0 is honored.
type Settings struct {
	TargetROAS        float64
	MaxCPA            float64
	MinDailyBudget    *float64
	MinCampaignSpend  *float64
	IncreaseThreshold *float64
	DecreaseThreshold *float64
	FocusArea         string
	GroupBy           string
	SegmentColumns    []string
	KnowledgeQuery    string

	CurrentStart  time.Time
	CurrentEnd    time.Time
	PreviousStart time.Time
	PreviousEnd   time.Time

	CompetitorAds  []CompetitorAd
	CompetitorURLs []string

	Experiment Experiment
	Planning   Planning

	ImageType       string
	ImageSize       string
	StylePreference string
	BrandContext    string
}

type CompetitorAd struct {
	Brand       string  `json:"brand"`
	Headline    string  `json:"headline"`
	Body        string  `json:"body"`
	StartTime   string  `json:"start_time,omitempty"`
	Impressions float64 `json:"impressions,omitempty"`
	Spend       float64 `json:"spend,omitempty"`
}

// Experiment describes a multivariate test request.
type Experiment struct {
	Variables               map[string][]string
	Objective               string
	BaselineRate            float64
	MinimumDetectableEffect float64
	ExpectedDailyTraffic    int
	LaunchCalendar          []string
	DesignTemplate          map[string]string
}

// Planning describes a strategy horizon request.
type Planning struct {
	Horizon        string
	TotalBudget    float64
	BusinessGoals  []string
	MarketForecast string
	Constraints    []string
	Notes          string
}

// Deps is the read-only context one agent run hands its tools.
type Deps struct {
	Data      *adsdata.Dataset
	Brand     Brand
	Knowledge Searcher
	Vision    Vision
	Pages     PageFetcher
	Image     *Image
	Now       func() time.Time
	Settings  Settings
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) records() ([]adsdata.Record, error) {
	if d.Data == nil || d.Data.Len() == 0 {
		return nil, ErrNoData
	}
	return d.Data.Records(), nil
}

func (d *Deps) targetROAS() float64 {
	if d.Settings.TargetROAS > 0 {
		return d.Settings.TargetROAS
	}
	return 3.0
}

func (d *Deps) maxCPA() float64 {
	if d.Settings.MaxCPA > 0 {
		return d.Settings.MaxCPA
	}
	return 500
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// NoArgs is the argument type of tools that take none.
type NoArgs struct{}

// Definition registers a handler of shape func(context.Context, *Deps, In) (Out, error).
type Definition struct {
	Name        string
	Description string
	Handler     any
}
