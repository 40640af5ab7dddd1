// Package knowledge indexes high-performing ads and finds the ones most
// similar to a query, by embedding similarity when an embedder is configured
// and by keyword overlap otherwise.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adsdash/agent-app/adsdata"
	"adsdash/agent-app/store"
	"adsdash/agent-app/tools"
)

// Embedder turns texts into vectors. gemini.Embedder satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Base searches the knowledge table of a store.
type Base struct {
	store  *store.Store
	embed  Embedder
	logger *zap.Logger
}

var _ tools.Searcher = (*Base)(nil)

// New returns a Base over s. embed may be nil.
func New(s *store.Store, embed Embedder, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{store: s, embed: embed, logger: logger}
}

var namespace = uuid.MustParse("6f1c2d4e-8a7b-4c3d-9e0f-1a2b3c4d5e6f")

// Index stores the top ads of ds by ROAS, at most limit of them, ignoring
// rows without spend. Re-indexing the same ad replaces its snippet.
func (b *Base) Index(ctx context.Context, ds *adsdata.Dataset, limit int) (int, error) {
	if ds == nil || ds.Len() == 0 {
		return 0, tools.ErrNoData
	}
	if limit <= 0 {
		limit = 50
	}
	rows := ds.Filter(func(r adsdata.Record) bool { return r.Spend > 0 && r.Purchases > 0 })
	rows = adsdata.Top(rows, limit, func(r adsdata.Record) float64 { return r.ROAS })
	if len(rows) == 0 {
		return 0, nil
	}

	snippets := make([]store.Snippet, len(rows))
	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = describe(r)
		snippets[i] = store.Snippet{
			ID:      uuid.NewSHA1(namespace, []byte(r.Campaign+"|"+r.AdSet+"|"+r.AdName+"|"+r.Start.Format("2006-01-02"))).String(),
			Content: texts[i],
			Metadata: map[string]string{
				"campaign": r.Campaign,
				"ad_name":  r.AdName,
				"roas":     fmt.Sprintf("%.2f", r.ROAS),
			},
		}
	}
	if b.embed != nil {
		vectors, err := b.embed.Embed(ctx, texts)
		switch {
		case err != nil:
			b.logger.Warn("knowledge_embed_failed", zap.Error(err))
		case len(vectors) != len(snippets):
			b.logger.Warn("knowledge_embed_mismatch", zap.Int("texts", len(texts)), zap.Int("vectors", len(vectors)))
		default:
			for i := range snippets {
				snippets[i].Embedding = vectors[i]
			}
		}
	}
	if err := b.store.PutSnippets(ctx, snippets); err != nil {
		return 0, err
	}
	b.logger.Info("knowledge_indexed", zap.Int("snippets", len(snippets)))
	return len(snippets), nil
}

func describe(r adsdata.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "活動：%s", r.Campaign)
	for _, part := range []struct{ label, value string }{
		{"廣告", r.AdName}, {"標題", r.Headline}, {"內文", r.Body}, {"行動呼籲", r.CTA},
		{"目標", r.Objective}, {"年齡", r.Age}, {"性別", r.Gender}, {"地區", r.Region},
	} {
		if part.value != "" {
			fmt.Fprintf(&sb, "；%s：%s", part.label, part.value)
		}
	}
	fmt.Fprintf(&sb, "；ROAS %.2f；CTR %.2f%%；花費 %.0f；購買 %.0f", r.ROAS, r.CTR, r.Spend, r.Purchases)
	return sb.String()
}

// Search returns the k snippets most similar to query.
func (b *Base) Search(ctx context.Context, query string, k int) ([]tools.Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty knowledge query")
	}
	if k <= 0 {
		k = 3
	}
	all, err := b.store.Snippets(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	scored, err := b.vectorScores(ctx, query, all)
	if err != nil {
		b.logger.Debug("knowledge_keyword_fallback", zap.Error(err))
		scored = keywordScores(query, all)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

var errNoVectors = errors.New("no embeddings available")

func (b *Base) vectorScores(ctx context.Context, query string, all []store.Snippet) ([]tools.Snippet, error) {
	if b.embed == nil {
		return nil, errNoVectors
	}
	vectors, err := b.embed.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errNoVectors
	}
	var out []tools.Snippet
	for _, sn := range all {
		if len(sn.Embedding) != len(vectors[0]) {
			continue
		}
		out = append(out, toolSnippet(sn, round(CosineSimilarity(vectors[0], sn.Embedding))))
	}
	if len(out) == 0 {
		return nil, errNoVectors
	}
	return out, nil
}

// keywordScores scores each snippet by the share of query terms it contains.
// Snippets matching no term are dropped.
func keywordScores(query string, all []store.Snippet) []tools.Snippet {
	terms := strings.Fields(strings.ToLower(query))
	var out []tools.Snippet
	for _, sn := range all {
		content := strings.ToLower(sn.Content)
		hits := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		out = append(out, toolSnippet(sn, round(float64(hits)/float64(len(terms)))))
	}
	return out
}

func toolSnippet(sn store.Snippet, score float64) tools.Snippet {
	return tools.Snippet{ID: sn.ID, Text: sn.Content, Score: score, Metadata: sn.Metadata}
}

// CosineSimilarity is in [-1, 1]. Zero vectors and mismatched lengths score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, aMag, bMag float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}
	if aMag == 0 || bMag == 0 {
		return 0
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag))
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
