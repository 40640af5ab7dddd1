package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsdash/agent-app/core"
)

type fakeCompletions struct {
	params openai.ChatCompletionNewParams
	resp   *openai.ChatCompletion
	err    error
}

func (f *fakeCompletions) New(_ context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.params = params
	return f.resp, f.err
}

func newFake(resp *openai.ChatCompletion, err error) (*GPT, *fakeCompletions) {
	fake := &fakeCompletions{resp: resp, err: err}
	return &GPT{cfg: Config{Model: "gpt-5-nano", MaxTokens: 512}, completions: fake}, fake
}

func TestGenerateConvertsToolCallsAndUsage(t *testing.T) {
	resp := &openai.ChatCompletion{
		Model: "gpt-5-nano-2025",
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{{
					ID:       "call_1",
					Function: openai.ChatCompletionMessageToolCallFunction{Name: "get_top_campaigns", Arguments: `{"limit":3}`},
				}},
			},
		}},
		Usage: openai.CompletionUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}
	g, fake := newFake(resp, nil)

	out, err := g.Generate(context.Background(), core.GenerateRequest{
		SystemContext: "be helpful",
		History:       []core.ChatContent{core.NewContent(core.RoleUser, "top campaigns?")},
		Tools:         []core.ToolDescriptor{{Name: "get_top_campaigns", Description: "list", Parameters: json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer"}}}`)}},
		Output:        &core.OutputFormat{Name: "answer", Schema: json.RawMessage(`{"type":"object"}`)},
	})
	require.NoError(t, err)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_1", out.ToolCalls[0].ID)
	assert.Equal(t, `{"limit":3}`, out.ToolCalls[0].Arguments)
	assert.Equal(t, int32(120), out.Stats.TotalTokenCount)
	assert.Equal(t, "gpt-5-nano-2025", out.Model)

	require.Len(t, fake.params.Messages, 2)
	require.Len(t, fake.params.Tools, 1)
	assert.Equal(t, "get_top_campaigns", fake.params.Tools[0].Function.Name)
	require.NotNil(t, fake.params.ResponseFormat.OfJSONSchema)
	assert.Equal(t, "answer", fake.params.ResponseFormat.OfJSONSchema.JSONSchema.Name)
}

func TestConvertMessagesRequiresToolCallID(t *testing.T) {
	_, err := convertMessages("", []core.ChatContent{{Role: core.RoleTool, ToolName: "x", Content: "{}"}})
	require.Error(t, err)

	msgs, err := convertMessages("", []core.ChatContent{
		{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{{ID: "a", ToolName: "x"}}},
		{Role: core.RoleTool, ToolCallID: "a", ToolName: "x", Content: "{}"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[0].OfAssistant)
	assert.Equal(t, "{}", msgs[0].OfAssistant.ToolCalls[0].Function.Arguments)
}

func TestGenerateWrapsTransportErrors(t *testing.T) {
	g, _ := newFake(nil, errors.New("connection refused"))
	_, err := g.Generate(context.Background(), core.GenerateRequest{History: []core.ChatContent{core.NewContent(core.RoleUser, "hi")}})
	var te *core.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "openai", te.Provider)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Model: "gpt-5-nano"})
	require.Error(t, err)
	_, err = New(Config{APIKey: "k"})
	require.Error(t, err)
	g, err := New(Config{APIKey: "k", Model: "gpt-5-nano"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-5-nano", g.ModelName())
}
