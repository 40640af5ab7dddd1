package webscan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const landing = `<html><head>
<title>好茶研究所</title>
<meta name="description" content="  手作冷泡茶   每日新鮮 ">
</head><body>
<h1>冷泡茶 冷泡茶</h1>
<h2>產地直送</h2>
<h2>產地直送</h2>
<a href="/shop">立即購買</a>
<button>加入購物車</button>
<a href="/about">關於我們</a>
</body></html>`

func TestSummarize(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(landing))
	require.NoError(t, err)

	page := Summarize(doc)
	assert.Equal(t, "好茶研究所", page.Title)
	assert.Equal(t, "手作冷泡茶 每日新鮮", page.Description)
	assert.Equal(t, []string{"冷泡茶", "產地直送"}, page.Headings)
	assert.Equal(t, []string{"立即購買", "加入購物車"}, page.CallsToAct)
}

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, landing)
	}))
	defer srv.Close()

	s := NewScanner(nil)
	page, err := s.FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, page.URL)
	assert.Equal(t, "好茶研究所", page.Title)

	_, err = s.FetchPage(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestCrawlStaysOnSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><head><title>home</title></head><body><a href="/a">a</a><a href="https://example.invalid/x">x</a></body></html>`)
		case "/a":
			fmt.Fprint(w, `<html><head><title>page a</title></head><body><a href="/">home</a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	pages, err := NewScanner(nil).Crawl(context.Background(), srv.URL+"/", 5)
	require.NoError(t, err)
	titles := map[string]bool{}
	for _, p := range pages {
		titles[p.Title] = true
	}
	assert.Equal(t, map[string]bool{"home": true, "page a": true}, titles)
}

func TestCrawlRejectsBadURL(t *testing.T) {
	_, err := NewScanner(nil).Crawl(context.Background(), "not a url", 1)
	assert.Error(t, err)
}
