package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsdash/agent-app/adsdata"
	"adsdash/agent-app/agents"
	"adsdash/agent-app/cache"
	"adsdash/agent-app/core"
	"adsdash/agent-app/llmtest"
	"adsdash/agent-app/services/agent_service"
	"adsdash/agent-app/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorBody struct {
	Error apiError `json:"error"`
}

func sampleData() *adsdata.Dataset {
	return adsdata.New([]adsdata.Record{
		{Campaign: "春茶上市", AdName: "春茶A", Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Spend: 6000, Purchases: 60, ROAS: 4.5},
	})
}

func copyResult() map[string]any {
	variants := make([]map[string]any, 3)
	for i := range variants {
		variants[i] = map[string]any{"headline": fmt.Sprintf("標題 %d", i+1), "body": "內文", "cta": "立即選購"}
	}
	return map[string]any{"variants": variants}
}

func newTestServer(t *testing.T, data *adsdata.Dataset, model *llmtest.Scripted) *httptest.Server {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc, err := agent_service.New(agent_service.Options{
		LLM: func(context.Context, agents.Runner) (core.LLM, error) {
			if model == nil {
				return nil, errors.New("no model configured")
			}
			return model, nil
		},
		Data:  adsdata.Static(data),
		Cache: cache.New(true, time.Hour),
		Store: s,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(New(svc, nil))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthAndAgentListing(t *testing.T) {
	srv := newTestServer(t, sampleData(), nil)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", nil, nil))

	var list struct {
		Agents []core.AgentMeta `json:"agents"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/agents", nil, &list))
	assert.Len(t, list.Agents, len(agents.Names()))

	var meta core.AgentMeta
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/agents/copywriting", nil, &meta))
	assert.Equal(t, "text", meta.Endpoint)
	assert.NotEmpty(t, meta.Output)

	var e errorBody
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/agents/nope", nil, &e))
	assert.Equal(t, codeNotFound, e.Error.Code)
}

func TestRunAgent(t *testing.T) {
	model := llmtest.New(llmtest.JSON(copyResult()))
	srv := newTestServer(t, sampleData(), model)

	var out struct {
		RunID  string                   `json:"run_id"`
		Cached bool                     `json:"cached"`
		Result agents.CopywritingResult `json:"result"`
	}
	status := do(t, srv, http.MethodPost, "/agents/copywriting/run", map[string]any{
		"params": map[string]any{"product_name": "X", "tone": "warm"},
	}, &out)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, out.RunID)
	assert.Len(t, out.Result.Variants, 3)

	status = do(t, srv, http.MethodPost, "/agents/copywriting/run", map[string]any{
		"params": map[string]any{"tone": "warm", "product_name": "X"},
	}, &out)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Cached)
	assert.Equal(t, 1, model.Calls())

	var history struct {
		Runs []store.Run `json:"runs"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/history?agent=copywriting&limit=5", nil, &history))
	assert.Len(t, history.Runs, 2)

	var one store.Run
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/history/"+history.Runs[0].ID, nil, &one))
	assert.Equal(t, "copywriting", one.Agent)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/history/missing", nil, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/history?limit=zero", nil, nil))

	var usage struct {
		Usage []store.UsageSummary `json:"usage"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/usage", nil, &usage))
	require.Len(t, usage.Usage, 1)
	assert.Equal(t, "scripted", usage.Usage[0].Model)

	var stats cache.Stats
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/cache/stats", nil, &stats))
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/cache", nil, nil))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/cache/stats", nil, &stats))
	assert.Equal(t, 0, stats.Total)
}

func TestRunAgentErrorStatuses(t *testing.T) {
	invalid := map[string]any{"variants": []map[string]any{{"headline": "只有一個"}}}
	tests := []struct {
		name   string
		data   *adsdata.Dataset
		model  *llmtest.Scripted
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "unknown agent",
			data:   sampleData(),
			path:   "/agents/nope/run",
			body:   map[string]any{},
			status: http.StatusNotFound,
			code:   codeNotFound,
		},
		{
			name:   "unknown param",
			data:   sampleData(),
			path:   "/agents/copywriting/run",
			body:   map[string]any{"params": map[string]any{"colour": "red"}},
			status: http.StatusBadRequest,
			code:   codeInvalidParams,
		},
		{
			name:   "bad image encoding",
			data:   sampleData(),
			path:   "/agents/image_analysis/run",
			body:   map[string]any{"image": map[string]any{"mime_type": "image/png", "data": "%%%"}},
			status: http.StatusBadRequest,
			code:   codeInvalidParams,
		},
		{
			name:   "vision agent without image",
			data:   sampleData(),
			model:  llmtest.New(),
			path:   "/agents/image_analysis/run",
			status: http.StatusBadRequest,
			code:   codeInvalidParams,
		},
		{
			name:   "invalid model output",
			data:   sampleData(),
			model:  llmtest.New(llmtest.JSON(invalid), llmtest.JSON(invalid)),
			path:   "/agents/copywriting/run",
			body:   map[string]any{},
			status: http.StatusUnprocessableEntity,
			code:   codeValidation,
		},
		{
			name:   "tool failure",
			data:   adsdata.New(nil),
			model:  llmtest.New(llmtest.ToolCalls(llmtest.Call{Name: "get_all_campaigns_summary"})),
			path:   "/agents/daily_check/run",
			body:   map[string]any{},
			status: http.StatusFailedDependency,
			code:   codeTool,
		},
		{
			name:   "endpoint down",
			data:   sampleData(),
			model:  llmtest.New(llmtest.Fail(errors.New("connection reset")), llmtest.Fail(errors.New("connection reset"))),
			path:   "/agents/copywriting/run",
			body:   map[string]any{},
			status: http.StatusBadGateway,
			code:   codeTransport,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.data, tt.model)
			var e errorBody
			assert.Equal(t, tt.status, do(t, srv, http.MethodPost, tt.path, tt.body, &e))
			assert.Equal(t, tt.code, e.Error.Code)
			assert.NotEmpty(t, e.Error.Message)
		})
	}
}

func TestChatEndpoints(t *testing.T) {
	reply := map[string]any{"message": "本月 ROAS 4.5", "intent": "query_data"}
	srv := newTestServer(t, sampleData(), llmtest.New(llmtest.JSON(reply)))

	var out struct {
		Result agents.ChatResult `json:"result"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/chat", map[string]any{"session_id": "s1", "message": "本月表現如何？"}, &out))
	assert.Equal(t, "query_data", out.Result.Intent)

	var history struct {
		Messages []core.ChatContent `json:"messages"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/chat/s1", nil, &history))
	assert.Len(t, history.Messages, 2)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/chat/s1", nil, nil))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/chat/s1", nil, &history))
	assert.Empty(t, history.Messages)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/chat", map[string]any{"session_id": "s1"}, nil))
}

func TestRenderImageRejectsInvalidResult(t *testing.T) {
	srv := newTestServer(t, sampleData(), nil)

	bodies := map[string]any{
		"negative variant": map[string]any{"result": map[string]any{
			"prompts":             []map[string]any{{"main_prompt": "tea"}},
			"recommended_variant": -3,
		}},
		"empty result": map[string]any{"result": map[string]any{}},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			var out struct {
				Error apiError `json:"error"`
			}
			assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/images/render", body, &out))
			assert.Equal(t, codeInvalidParams, out.Error.Code)
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrap: %w", agents.ErrInvalidParams), http.StatusBadRequest},
		{&core.AgentError{Agent: "x", Kind: core.ErrTransport, Err: context.Canceled}, http.StatusRequestTimeout},
		{&core.AgentError{Agent: "x", Kind: core.ErrTransport, Err: context.DeadlineExceeded}, http.StatusRequestTimeout},
		{&core.AgentError{Agent: "x", Kind: core.ErrValidation, Err: errors.New("bad")}, http.StatusUnprocessableEntity},
		{agent_service.ErrNoStore, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := statusOf(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
