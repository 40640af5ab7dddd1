package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsdash/agent-app/adsdata"
	"adsdash/agent-app/store"
	"adsdash/agent-app/tools"
)

// topicEmbedder puts one dimension per topic word so similarity is predictable.
type topicEmbedder struct {
	topics []string
	err    error
	calls  int
}

func (e *topicEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(e.topics))
		for j, topic := range e.topics {
			if strings.Contains(text, topic) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func dataset() *adsdata.Dataset {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return adsdata.New([]adsdata.Record{
		{Campaign: "春茶上市", AdName: "春茶A", Headline: "春茶新上市", Start: day, Spend: 6000, Purchases: 60, ROAS: 4.5, CTR: 2},
		{Campaign: "冬季暖心", AdName: "冬季A", Headline: "暖心熱茶", Start: day, Spend: 8000, Purchases: 5, ROAS: 1.2, CTR: 0.78},
		{Campaign: "試飲組", AdName: "試飲A", Headline: "試飲禮盒", Start: day, Spend: 500, Purchases: 5, ROAS: 5, CTR: 1.5},
		{Campaign: "未投放", AdName: "草稿", Start: day},
	})
}

func newBase(t *testing.T, embed Embedder) *Base {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, embed, nil)
}

func TestIndexSkipsUnspentAdsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := newBase(t, nil)

	n, err := b.Index(ctx, dataset(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = b.Index(ctx, dataset(), 10)
	require.NoError(t, err)

	all, err := b.store.Snippets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err = b.Index(ctx, dataset(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = b.Index(ctx, adsdata.New(nil), 10)
	assert.ErrorIs(t, err, tools.ErrNoData)
}

func TestSearchByEmbedding(t *testing.T) {
	ctx := context.Background()
	embed := &topicEmbedder{topics: []string{"春茶", "暖心", "試飲"}}
	b := newBase(t, embed)
	_, err := b.Index(ctx, dataset(), 10)
	require.NoError(t, err)

	got, err := b.Search(ctx, "暖心 冬季 活動", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "冬季暖心", got[0].Metadata["campaign"])
	assert.Equal(t, 1.0, got[0].Score)
	assert.Equal(t, 0.0, got[1].Score)
}

func TestSearchFallsBackToKeywords(t *testing.T) {
	ctx := context.Background()
	embed := &topicEmbedder{topics: []string{"春茶"}}
	b := newBase(t, embed)
	_, err := b.Index(ctx, dataset(), 10)
	require.NoError(t, err)

	embed.err = errors.New("quota exceeded")
	got, err := b.Search(ctx, "試飲 禮盒 團購", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "試飲組", got[0].Metadata["campaign"])
	assert.InDelta(t, 0.6667, got[0].Score, 1e-4)
}

func TestSearchWithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	b := newBase(t, nil)

	got, err := b.Search(ctx, "春茶", 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = b.Index(ctx, dataset(), 10)
	require.NoError(t, err)
	got, err = b.Search(ctx, "春茶", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Text, "標題：春茶新上市")

	_, err = b.Search(ctx, "  ", 3)
	assert.Error(t, err)
}

func TestKnowledgeToolsUseTheBase(t *testing.T) {
	ctx := context.Background()
	b := newBase(t, nil)
	_, err := b.Index(ctx, dataset(), 10)
	require.NoError(t, err)

	deps := &tools.Deps{Knowledge: b, Settings: tools.Settings{KnowledgeQuery: "試飲"}}
	examples, err := tools.LoadKnowledgeExamples(ctx, deps, tools.NoArgs{})
	require.NoError(t, err)
	assert.True(t, examples.Available)
	require.Len(t, examples.Examples, 1)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
}
