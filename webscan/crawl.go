package webscan

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"adsdash/agent-app/tools"
)

// Crawl visits start and same-domain links up to maxPages, summarizing each
// page. Pages that fail to load are logged and skipped.
func (s *Scanner) Crawl(ctx context.Context, start string, maxPages int) ([]tools.PageSummary, error) {
	u, err := url.Parse(start)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid start url %q", start)
	}
	if maxPages <= 0 {
		maxPages = 5
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.MaxDepth(2),
		colly.UserAgent(s.UserAgent),
		colly.StdlibContext(ctx),
	)
	if s.Client != nil {
		c.SetRequestTimeout(s.Client.Timeout)
	}

	var (
		mu      sync.Mutex
		pages   []tools.PageSummary
		visited int
	)
	c.OnRequest(func(r *colly.Request) {
		mu.Lock()
		defer mu.Unlock()
		if visited >= maxPages {
			r.Abort()
			return
		}
		visited++
	})
	c.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			return
		}
		page := Summarize(doc)
		page.URL = r.Request.URL.String()
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		_ = e.Request.Visit(e.Attr("href"))
	})
	c.OnError(func(r *colly.Response, err error) {
		s.Logger.Warn("crawl_page_failed", zap.String("url", r.Request.URL.String()), zap.Error(err))
	})

	if err := c.Visit(start); err != nil {
		return nil, fmt.Errorf("crawl %s: %w", start, err)
	}
	c.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}
