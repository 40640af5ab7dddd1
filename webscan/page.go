// Package webscan extracts the advertising surface of public landing pages.
package webscan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"adsdash/agent-app/tools"
)

const maxPageBytes = 2 << 20

var ctaWords = []string{"購買", "立即", "訂購", "加入購物車", "了解更多", "免費", "buy", "shop", "order", "learn more", "sign up", "get started"}

// Scanner fetches pages over HTTP.
type Scanner struct {
	Client    *http.Client
	UserAgent string
	Logger    *zap.Logger
}

func NewScanner(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		Client:    &http.Client{Timeout: 15 * time.Second},
		UserAgent: "adsdash-webscan/1.0",
		Logger:    logger,
	}
}

// FetchPage loads url and summarizes its title, description, headings and calls to action.
func (s *Scanner) FetchPage(ctx context.Context, url string) (tools.PageSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tools.PageSummary{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	resp, err := s.Client.Do(req)
	if err != nil {
		return tools.PageSummary{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tools.PageSummary{}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return tools.PageSummary{}, fmt.Errorf("parse %s: %w", url, err)
	}
	page := Summarize(doc)
	page.URL = url
	s.Logger.Debug("page_fetched", zap.String("url", url), zap.Int("headings", len(page.Headings)))
	return page, nil
}

// Summarize extracts the page summary from a parsed document.
func Summarize(doc *goquery.Document) tools.PageSummary {
	page := tools.PageSummary{
		Title:      cleanText(doc.Find("title").First().Text()),
		Headings:   []string{},
		CallsToAct: []string{},
	}
	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && page.Title == "" {
		page.Title = cleanText(v)
	}
	if v, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		page.Description = cleanText(v)
	} else if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		page.Description = cleanText(v)
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if text := cleanText(h.Text()); text != "" {
			page.Headings = appendOnce(page.Headings, text)
		}
		return len(page.Headings) < 20
	})

	doc.Find("a, button").Each(func(_ int, el *goquery.Selection) {
		text := cleanText(el.Text())
		if text == "" || len([]rune(text)) > 40 || len(page.CallsToAct) >= 10 {
			return
		}
		lower := strings.ToLower(text)
		for _, w := range ctaWords {
			if strings.Contains(lower, w) {
				page.CallsToAct = appendOnce(page.CallsToAct, text)
				return
			}
		}
	})
	return page
}

// cleanText collapses whitespace and drops a repeated trailing phrase, which
// many sites emit for responsive duplicates of the same element.
func cleanText(s string) string {
	words := strings.Fields(s)
	for i := 1; i <= len(words)/2; i++ {
		if strings.Join(words[len(words)-i:], " ") == strings.Join(words[len(words)-2*i:len(words)-i], " ") {
			return strings.Join(words[:len(words)-i], " ")
		}
	}
	return strings.Join(words, " ")
}

func appendOnce(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
