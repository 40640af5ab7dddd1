package agent_service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsdash/agent-app/adsdata"
	"adsdash/agent-app/agents"
	"adsdash/agent-app/cache"
	"adsdash/agent-app/core"
	"adsdash/agent-app/llmtest"
	"adsdash/agent-app/store"
)

func copyResult() map[string]any {
	variants := make([]map[string]any, 3)
	for i := range variants {
		variants[i] = map[string]any{
			"headline": fmt.Sprintf("標題 %d", i+1),
			"body":     fmt.Sprintf("內文 %d", i+1),
			"cta":      "立即選購",
		}
	}
	return map[string]any{"variants": variants}
}

type fixture struct {
	svc     *Service
	store   *store.Store
	scripts []*llmtest.Scripted
	agents  []string
}

// newFixture hands out one scripted model per agent call, in order.
func newFixture(t *testing.T, scripts ...*llmtest.Scripted) *fixture {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{store: s, scripts: scripts}
	svc, err := New(Options{
		LLM: func(_ context.Context, r agents.Runner) (core.LLM, error) {
			f.agents = append(f.agents, r.Name())
			if len(f.scripts) == 0 {
				return nil, errors.New("no model left")
			}
			next := f.scripts[0]
			f.scripts = f.scripts[1:]
			return next, nil
		},
		Data: adsdata.Static(adsdata.New([]adsdata.Record{
			{Campaign: "春茶上市", AdName: "春茶A", Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Spend: 6000, Purchases: 60, ROAS: 4.5},
		})),
		Env:   agents.Env{Now: func() time.Time { return time.Date(2024, 7, 10, 9, 0, 0, 0, time.UTC) }},
		Cache: cache.New(true, time.Hour),
		Store: s,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewRequiresLLMFactory(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestCallAgentRecordsRunAndUsage(t *testing.T) {
	ctx := context.Background()
	model := llmtest.New(llmtest.JSON(copyResult()))
	f := newFixture(t, model)

	out, err := f.svc.CallAgent(ctx, core.AgentInput{
		Name:      "copywriting",
		SessionID: "s1",
		Params:    json.RawMessage(`{"product_name":"X","tone":"warm"}`),
	}, nil)
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.NotEmpty(t, out.RunID)
	result, ok := out.Result.(*agents.CopywritingResult)
	require.True(t, ok)
	require.Len(t, result.Variants, 3)
	assert.Equal(t, "scripted", out.Info.Model)

	runs, err := f.svc.History(ctx, "copywriting", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, out.RunID, runs[0].ID)
	assert.Equal(t, "s1", runs[0].SessionID)
	assert.Equal(t, 15, runs[0].TotalToken)
	var recorded agents.CopywritingParams
	require.NoError(t, json.Unmarshal(runs[0].Params, &recorded))
	assert.Equal(t, "X", recorded.ProductName)
	assert.Equal(t, "warm", recorded.Tone)
	assert.Equal(t, "依數據推斷", recorded.TargetAudience)

	usage, err := f.svc.Usage(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].Calls)
	assert.Equal(t, 15, usage[0].Total)
}

func TestCallAgentServesCache(t *testing.T) {
	ctx := context.Background()
	first := llmtest.New(llmtest.JSON(copyResult()))
	second := llmtest.New(llmtest.JSON(copyResult()))
	f := newFixture(t, first, second)

	in := core.AgentInput{Name: "copywriting", Params: json.RawMessage(`{"tone":"warm","product_name":"X"}`)}
	_, err := f.svc.CallAgent(ctx, in, nil)
	require.NoError(t, err)

	in.Params = json.RawMessage(`{"product_name":"X", "tone":"warm"}`)
	out, err := f.svc.CallAgent(ctx, in, nil)
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.Equal(t, 0, second.Calls())
	assert.Equal(t, []string{"copywriting"}, f.agents)

	in.NoCache = true
	out, err = f.svc.CallAgent(ctx, in, nil)
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, 1, second.Calls())

	stats := f.svc.CacheStats()
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Hits)
	f.svc.ClearCache()
	assert.Equal(t, 0, f.svc.CacheStats().Total)
	assert.Equal(t, 0, f.svc.CleanupCache())

	runs, err := f.svc.History(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	cached := 0
	for _, r := range runs {
		if r.Cached {
			cached++
		}
	}
	assert.Equal(t, 1, cached)

	usage, err := f.svc.Usage(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 2, usage[0].Calls)
}

func TestCachedResultsAreIndependentCopies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llmtest.New(llmtest.JSON(copyResult())))
	in := core.AgentInput{Name: "copywriting", Params: json.RawMessage(`{"product_name":"X"}`)}

	out, err := f.svc.CallAgent(ctx, in, nil)
	require.NoError(t, err)
	fresh := out.Result.(*agents.CopywritingResult)
	fresh.Variants[0].Headline = "改過的標題"

	hit, err := f.svc.CallAgent(ctx, in, nil)
	require.NoError(t, err)
	require.True(t, hit.Cached)
	first, ok := hit.Result.(*agents.CopywritingResult)
	require.True(t, ok, "a hit decodes into the agent's result type")
	assert.Equal(t, "標題 1", first.Variants[0].Headline)
	first.Variants[1].Body = "改過的內文"

	again, err := f.svc.CallAgent(ctx, in, nil)
	require.NoError(t, err)
	second := again.Result.(*agents.CopywritingResult)
	assert.NotSame(t, first, second)
	assert.Equal(t, "內文 2", second.Variants[1].Body)
}

func TestCallAgentFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing name", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CallAgent(ctx, core.AgentInput{}, nil)
		assert.ErrorIs(t, err, agents.ErrInvalidParams)
	})

	t.Run("unknown agent", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CallAgent(ctx, core.AgentInput{Name: "nope"}, nil)
		assert.ErrorIs(t, err, agents.ErrUnknownAgent)
		assert.Equal(t, "unknown_agent", ErrorKind(err))
	})

	t.Run("bad params never reach a model", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CallAgent(ctx, core.AgentInput{Name: "copywriting", Params: json.RawMessage(`{"colour":"red"}`)}, nil)
		assert.ErrorIs(t, err, agents.ErrInvalidParams)
		assert.Empty(t, f.agents)
	})

	t.Run("validation failure is recorded", func(t *testing.T) {
		bad := map[string]any{"variants": []map[string]any{{"headline": "只有一個"}}}
		model := llmtest.New(llmtest.JSON(bad), llmtest.JSON(bad))
		f := newFixture(t, model)

		_, err := f.svc.CallAgent(ctx, core.AgentInput{Name: "copywriting"}, nil)
		require.ErrorIs(t, err, core.ErrValidation)
		assert.Equal(t, 2, model.Calls())

		runs, err := f.svc.History(ctx, "copywriting", 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "validation", runs[0].ErrorKind)
		assert.Equal(t, 0, f.svc.CacheStats().Total)
	})

	t.Run("factory failure is transport", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CallAgent(ctx, core.AgentInput{Name: "copywriting"}, nil)
		assert.ErrorIs(t, err, core.ErrTransport)
	})
}

func TestChatKeepsSessionHistory(t *testing.T) {
	ctx := context.Background()
	reply := map[string]any{"message": "本月 ROAS 4.5", "intent": "query_data"}
	f := newFixture(t, llmtest.New(llmtest.JSON(reply)), llmtest.New(llmtest.JSON(reply)))

	_, err := f.svc.Chat(ctx, "s1", "本月表現如何？")
	require.NoError(t, err)
	out, err := f.svc.Chat(ctx, "s1", "那上個月呢？")
	require.NoError(t, err)
	assert.Equal(t, "本月 ROAS 4.5", out.Result.(*agents.ChatResult).Message)
	assert.Len(t, f.svc.ChatHistory("s1"), 4)

	f.svc.ResetChat("s1")
	assert.Empty(t, f.svc.ChatHistory("s1"))

	runs, err := f.svc.History(ctx, "conversational", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestWithoutStore(t *testing.T) {
	svc, err := New(Options{LLM: func(context.Context, agents.Runner) (core.LLM, error) {
		return llmtest.New(llmtest.JSON(copyResult())), nil
	}})
	require.NoError(t, err)

	_, err = svc.CallAgent(context.Background(), core.AgentInput{Name: "copywriting"}, nil)
	require.NoError(t, err)
	_, err = svc.History(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = svc.Usage(context.Background())
	assert.ErrorIs(t, err, ErrNoStore)
	assert.False(t, svc.CacheStats().Enabled)
}

func TestListAgents(t *testing.T) {
	f := newFixture(t)
	metas := f.svc.ListAgents()
	assert.Len(t, metas, len(agents.Names()))

	meta, err := f.svc.Describe("daily_check")
	require.NoError(t, err)
	assert.Equal(t, "daily_check", meta.Name)
	_, err = f.svc.Describe("nope")
	assert.ErrorIs(t, err, agents.ErrUnknownAgent)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "canceled", ErrorKind(&core.AgentError{Agent: "x", Kind: core.ErrTransport, Err: context.DeadlineExceeded}))
	assert.Equal(t, "transport", ErrorKind(&core.AgentError{Agent: "x", Kind: core.ErrTransport, Err: errors.New("502")}))
	assert.Equal(t, "tool", ErrorKind(&core.AgentError{Agent: "x", Kind: core.ErrTool, Err: errors.New("boom")}))
	assert.Equal(t, "internal", ErrorKind(errors.New("boom")))
}

func TestRenderImageWithoutRenderer(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.RenderImage(context.Background(), &agents.ImagePromptResult{}, 0)
	assert.Error(t, err)
}
