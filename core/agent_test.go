package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsdash/agent-app/core"
	"adsdash/agent-app/llmtest"
)

type scoreDeps struct {
	base int
}

type scoreInput struct {
	Name string `json:"name" jsonschema_description:"item name"`
}

type scoreOutput struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type reviewResult struct {
	Title  string   `json:"title" validate:"required"`
	Score  int      `json:"score" validate:"min=1,max=10" jsonschema:"minimum=1,maximum=10"`
	Points []string `json:"points" validate:"min=2,max=3" jsonschema:"minItems=2,maxItems=3"`
	Note   string   `json:"note,omitempty"`
}

func newTestRegistry(t *testing.T) *core.ToolRegistry {
	t.Helper()
	reg := core.NewToolRegistry()
	score, err := core.NewInbuiltToolExecutor("score_item", "score an item", func(ctx context.Context, deps *scoreDeps, in scoreInput) (scoreOutput, error) {
		return scoreOutput{Name: in.Name, Score: deps.base + len(in.Name)}, nil
	})
	require.NoError(t, err)
	reg.RegisterTool(score.GetName(), score)

	broken, err := core.NewInbuiltToolExecutor("broken", "always fails", func(ctx context.Context, deps *scoreDeps, in scoreInput) (scoreOutput, error) {
		return scoreOutput{}, errors.New("dataset unavailable")
	})
	require.NoError(t, err)
	reg.RegisterTool(broken.GetName(), broken)
	return reg
}

func newTestAgent(t *testing.T, llm core.LLM) *core.Agent {
	t.Helper()
	agent, err := core.NewAgent("review", "reviews an item", "Review {{item}} carefully.", llm, newTestRegistry(t), []string{"score_item", "broken"})
	require.NoError(t, err)
	return agent
}

func validReview() map[string]any {
	return map[string]any{"title": "Green tea", "score": 8, "points": []string{"fresh", "warm"}}
}

func TestAgentRunDecodesFinalAnswer(t *testing.T) {
	llm := llmtest.New(llmtest.JSON(validReview()))
	agent := newTestAgent(t, llm)

	out, info, err := core.Invoke[reviewResult](context.Background(), agent, &scoreDeps{}, core.LLMInput{
		Text:   "Please review {{item}}.",
		Labels: map[string]string{"item": "oolong"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Green tea", out.Title)
	assert.Equal(t, 8, out.Score)
	assert.Equal(t, 1, info.Turns)
	assert.Equal(t, int32(15), info.Stats.TotalTokenCount)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].SystemContext, "Review oolong carefully.")
	assert.Equal(t, "Please review oolong.", reqs[0].History[0].Content)
	require.NotNil(t, reqs[0].Output)
	assert.Contains(t, string(reqs[0].Output.Schema), `"minItems":2`)
	require.Len(t, reqs[0].Tools, 2)
	assert.Equal(t, "broken", reqs[0].Tools[0].Name)
}

func TestAgentRunExecutesToolCalls(t *testing.T) {
	llm := llmtest.New(
		llmtest.ToolCalls(llmtest.Call{Name: "score_item", Args: map[string]string{"name": "tea"}}),
		llmtest.JSON(validReview()),
	)
	agent := newTestAgent(t, llm)

	var out reviewResult
	info, err := agent.Run(context.Background(), &scoreDeps{base: 4}, core.LLMInput{Text: "go"}, &out)
	require.NoError(t, err)
	require.Len(t, info.ToolCalls, 1)
	assert.Equal(t, "score_item", info.ToolCalls[0].Name)
	assert.Empty(t, info.ToolCalls[0].Error)

	second := llm.Requests()[1].History
	last := second[len(second)-1]
	assert.Equal(t, core.RoleTool, last.Role)
	assert.Equal(t, "score_item", last.ToolName)
	assert.JSONEq(t, `{"name":"tea","score":7}`, last.Content)
	assert.Equal(t, core.RoleAssistant, second[len(second)-2].Role)
}

func TestAgentRunReportsUnknownToolToModel(t *testing.T) {
	llm := llmtest.New(
		llmtest.ToolCalls(llmtest.Call{Name: "delete_account"}),
		llmtest.JSON(validReview()),
	)
	agent := newTestAgent(t, llm)

	var out reviewResult
	info, err := agent.Run(context.Background(), &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.NoError(t, err)
	require.Len(t, info.ToolCalls, 1)
	assert.NotEmpty(t, info.ToolCalls[0].Error)
	history := llm.Requests()[1].History
	assert.Contains(t, history[len(history)-1].Content, "unknown tool")
}

func TestAgentRunFailsOnToolError(t *testing.T) {
	llm := llmtest.New(llmtest.ToolCalls(llmtest.Call{Name: "broken", Args: map[string]string{"name": "x"}}))
	agent := newTestAgent(t, llm)

	var out reviewResult
	_, err := agent.Run(context.Background(), &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTool)
	assert.Contains(t, err.Error(), "dataset unavailable")
	var toolErr *core.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "broken", toolErr.Tool)
}

func TestAgentRunRetriesValidationOnce(t *testing.T) {
	missing := validReview()
	delete(missing, "title")
	llm := llmtest.New(llmtest.JSON(missing), llmtest.JSON(validReview()))
	agent := newTestAgent(t, llm)

	var out reviewResult
	info, err := agent.Run(context.Background(), &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Retries)
	assert.Equal(t, "Green tea", out.Title)

	history := llm.Requests()[1].History
	assert.Contains(t, history[len(history)-1].Content, "title: required")
}

func TestAgentRunFailsAfterSecondInvalidAnswer(t *testing.T) {
	bad := validReview()
	bad["score"] = 42
	llm := llmtest.New(llmtest.JSON(bad), llmtest.JSON(bad))
	agent := newTestAgent(t, llm)

	var out reviewResult
	_, err := agent.Run(context.Background(), &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"score: must be at most 10"}, verr.Problems)
	assert.Equal(t, 2, llm.Calls())
}

func TestAgentRunRetriesTransportOnce(t *testing.T) {
	llm := llmtest.New(llmtest.Fail(errors.New("connection reset")), llmtest.JSON(validReview()))
	agent := newTestAgent(t, llm)

	var out reviewResult
	info, err := agent.Run(context.Background(), &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Retries)
	assert.Equal(t, 2, info.Turns)
}

func TestAgentRunSharesSingleRetry(t *testing.T) {
	missing := validReview()
	delete(missing, "points")
	llm := llmtest.New(llmtest.Fail(errors.New("timeout")), llmtest.JSON(missing), llmtest.JSON(validReview()))
	agent := newTestAgent(t, llm)

	var out reviewResult
	_, err := agent.Run(context.Background(), &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, 2, llm.Calls())
}

func TestAgentRunDoesNotRetryClientErrors(t *testing.T) {
	llm := llmtest.New(
		llmtest.Fail(&core.TransportError{Provider: "openai", StatusCode: 401, Err: errors.New("bad key")}),
		llmtest.JSON(validReview()),
	)
	agent := newTestAgent(t, llm)

	var out reviewResult
	_, err := agent.Run(context.Background(), &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.Equal(t, 1, llm.Calls())
	assert.Equal(t, core.ErrTransport, core.KindOf(err))
}

func TestAgentRunHonoursCancellation(t *testing.T) {
	llm := llmtest.New(llmtest.JSON(validReview()))
	agent := newTestAgent(t, llm)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out reviewResult
	_, err := agent.Run(ctx, &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, llm.Calls())
}

func TestAgentRunBoundsToolRounds(t *testing.T) {
	call := llmtest.ToolCalls(llmtest.Call{Name: "score_item", Args: map[string]string{"name": "a"}})
	llm := llmtest.New(call, call, call)
	agent, err := core.NewAgent("loop", "", "", llm, newTestRegistry(t), []string{"score_item"}, core.WithMaxToolRounds(2))
	require.NoError(t, err)

	var out reviewResult
	_, err = agent.Run(context.Background(), &scoreDeps{}, core.LLMInput{Text: "go"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMaxToolRounds)
}

func TestNewAgentRejectsUnknownTool(t *testing.T) {
	_, err := core.NewAgent("x", "", "", llmtest.New(), core.NewToolRegistry(), []string{"missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownTool))
	assert.True(t, strings.Contains(err.Error(), "missing"))
}
