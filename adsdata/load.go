package adsdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrNoCampaignColumn is returned when a file lacks any campaign name column.
var ErrNoCampaignColumn = errors.New("campaign column not found")

// headerAliases maps accepted column headers to record fields. The Chinese
// headers are those of the Traditional Chinese Meta Ads Manager export.
var headerAliases = map[string]string{
	"campaign":        "campaign",
	"campaign_name":   "campaign",
	"行銷活動名稱":          "campaign",
	"ad_set":          "ad_set",
	"廣告組合名稱":          "ad_set",
	"ad_name":         "ad_name",
	"廣告名稱":            "ad_name",
	"headline":        "headline",
	"標題":              "headline",
	"body":            "body",
	"內文":              "body",
	"cta":             "cta",
	"行動呼籲":            "cta",
	"objective":       "objective",
	"目標":              "objective",
	"age":             "age",
	"年齡":              "age",
	"gender":          "gender",
	"性別":              "gender",
	"region":          "region",
	"地區":              "region",
	"device":          "device",
	"裝置":              "device",
	"start":           "start",
	"date":            "start",
	"開始":              "start",
	"日期":              "start",
	"end":             "end",
	"結束時間":            "end",
	"spend":           "spend",
	"花費金額 (TWD)":      "spend",
	"impressions":     "impressions",
	"曝光次數":            "impressions",
	"reach":           "reach",
	"觸及人數":            "reach",
	"clicks":          "clicks",
	"link_clicks":     "clicks",
	"連結點擊次數":          "clicks",
	"landing_page_views": "landing_page_views",
	"連結頁面瀏覽次數":        "landing_page_views",
	"content_views":   "content_views",
	"內容瀏覽次數":          "content_views",
	"add_to_cart":     "add_to_cart",
	"加到購物車次數":         "add_to_cart",
	"checkouts":       "checkouts",
	"開始結帳次數":          "checkouts",
	"purchases":       "purchases",
	"購買次數":            "purchases",
	"roas":            "roas",
	"購買 ROAS（廣告投資報酬率）": "roas",
	"ctr":             "ctr",
	"CTR（全部）":         "ctr",
	"cpa":             "cpa",
	"每次購買的成本":         "cpa",
	"cpm":             "cpm",
	"CPM（每千次廣告曝光成本）":  "cpm",
	"frequency":       "frequency",
	"頻率":              "frequency",
	"quality_ranking": "quality_ranking",
	"品質排名":            "quality_ranking",
	"engagement_ranking": "engagement_ranking",
	"互動率排名":           "engagement_ranking",
	"conversion_ranking": "conversion_ranking",
	"轉換率排名":           "conversion_ranking",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/1/2",
	time.RFC3339,
}

// LoadFile reads a CSV export from path.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	ds, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	ds.source = path
	return ds, nil
}

// Load parses CSV rows. Unknown columns are ignored; empty or "-" cells read as zero.
func Load(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[int]string, len(header))
	hasCampaign := false
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		field, ok := headerAliases[name]
		if !ok {
			field, ok = headerAliases[strings.ToLower(name)]
		}
		if !ok {
			continue
		}
		columns[i] = field
		if field == "campaign" {
			hasCampaign = true
		}
	}
	if !hasCampaign {
		return nil, ErrNoCampaignColumn
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var rec Record
		for i, cell := range row {
			field, ok := columns[i]
			if !ok {
				continue
			}
			if err := assign(&rec, field, strings.TrimSpace(cell)); err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
		}
		if rec.Campaign == "" {
			continue
		}
		records = append(records, rec)
	}
	return New(records), nil
}

func assign(rec *Record, field, value string) error {
	switch field {
	case "campaign":
		rec.Campaign = value
	case "ad_set":
		rec.AdSet = value
	case "ad_name":
		rec.AdName = value
	case "headline":
		rec.Headline = value
	case "body":
		rec.Body = value
	case "cta":
		rec.CTA = value
	case "objective":
		rec.Objective = value
	case "age":
		rec.Age = value
	case "gender":
		rec.Gender = value
	case "region":
		rec.Region = value
	case "device":
		rec.Device = value
	case "quality_ranking":
		rec.QualityRanking = value
	case "engagement_ranking":
		rec.EngagementRanking = value
	case "conversion_ranking":
		rec.ConversionRanking = value
	case "start", "end":
		t, err := parseDate(value)
		if err != nil {
			return err
		}
		if field == "start" {
			rec.Start = t
		} else {
			rec.End = t
		}
	default:
		n, err := parseNumber(value)
		if err != nil {
			return err
		}
		switch field {
		case "spend":
			rec.Spend = n
		case "impressions":
			rec.Impressions = n
		case "reach":
			rec.Reach = n
		case "clicks":
			rec.Clicks = n
		case "landing_page_views":
			rec.LandingPageViews = n
		case "content_views":
			rec.ContentViews = n
		case "add_to_cart":
			rec.AddToCart = n
		case "checkouts":
			rec.Checkouts = n
		case "purchases":
			rec.Purchases = n
		case "roas":
			rec.ROAS = n
		case "ctr":
			rec.CTR = n
		case "cpa":
			rec.CPA = n
		case "cpm":
			rec.CPM = n
		case "frequency":
			rec.Frequency = n
		}
	}
	return nil
}

func parseNumber(value string) (float64, error) {
	value = strings.TrimSuffix(strings.ReplaceAll(value, ",", ""), "%")
	if value == "" || value == "-" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	return n, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" || value == "-" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
