package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"adsdash/agent-app/agents"
	"adsdash/agent-app/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingCaller echoes inputs and tracks concurrency.
type recordingCaller struct {
	mu       sync.Mutex
	inputs   []core.AgentInput
	results  map[string]any
	fail     map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *recordingCaller) CallAgent(ctx context.Context, in core.AgentInput, _ *core.Image) (core.AgentOutput, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}

	c.mu.Lock()
	c.inputs = append(c.inputs, in)
	result := c.results[in.Name]
	err := c.fail[in.Name]
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return core.AgentOutput{}, ctx.Err()
		}
	}
	if err != nil {
		return core.AgentOutput{}, err
	}
	if result == nil {
		result = string(in.Params)
	}
	return core.AgentOutput{RunID: "run-" + in.Name, Agent: in.Name, Result: result}, nil
}

func (c *recordingCaller) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.inputs))
	for i, in := range c.inputs {
		names[i] = in.Name
	}
	return names
}

func TestWorkflowRunsStepsInOrder(t *testing.T) {
	caller := &recordingCaller{}
	w := New("weekly", caller, nil)
	require.NoError(t, w.Add(Step{Name: "a", Agent: "daily_check"}))
	require.NoError(t, w.Add(Step{Name: "b", Agent: "quality_score", DependsOn: []string{"a"}}))
	require.NoError(t, w.Add(Step{
		Name:      "c",
		Agent:     "report_generation",
		DependsOn: []string{"a", "b"},
		Build: func(results map[string]core.AgentOutput) (json.RawMessage, error) {
			return json.Marshal(map[string]string{"from": results["b"].RunID})
		},
	}))

	results, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"daily_check", "quality_score", "report_generation"}, caller.names())
	assert.Len(t, results, 3)
	assert.Equal(t, `{"from":"run-quality_score"}`, results["c"].Result)
	assert.Equal(t, "workflow:weekly", caller.inputs[0].SessionID)
}

func TestWorkflowRejectsUnrunDependency(t *testing.T) {
	caller := &recordingCaller{}
	w := New("broken", caller, nil)
	require.NoError(t, w.Add(Step{Name: "report", Agent: "report_generation", DependsOn: []string{"check"}}))
	require.NoError(t, w.Add(Step{Name: "check", Agent: "daily_check"}))

	_, err := w.Run(context.Background())
	assert.ErrorIs(t, err, ErrDependencyNotRun)
	assert.Empty(t, caller.names())
}

func TestWorkflowStopsAtFirstFailure(t *testing.T) {
	caller := &recordingCaller{fail: map[string]error{"quality_score": core.ErrValidation}}
	w := New("partial", caller, nil)
	require.NoError(t, w.Add(Step{Name: "a", Agent: "daily_check"}))
	require.NoError(t, w.Add(Step{Name: "b", Agent: "quality_score"}))
	require.NoError(t, w.Add(Step{Name: "c", Agent: "funnel_analysis"}))

	results, err := w.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), `step "b"`)
	assert.Len(t, results, 1)
	assert.Equal(t, []string{"daily_check", "quality_score"}, caller.names())

	bad := New("bad", caller, nil)
	require.NoError(t, bad.Add(Step{Name: "x", Agent: "daily_check", Build: func(map[string]core.AgentOutput) (json.RawMessage, error) {
		return nil, errors.New("no inputs")
	}}))
	_, err = bad.Run(context.Background())
	assert.ErrorContains(t, err, "no inputs")
}

func TestWorkflowAddValidates(t *testing.T) {
	w := New("v", &recordingCaller{}, nil)
	require.NoError(t, w.Add(Step{Name: "a", Agent: "daily_check"}))
	assert.ErrorIs(t, w.Add(Step{Name: "a", Agent: "quality_score"}), ErrDuplicateStep)
	assert.Error(t, w.Add(Step{Name: "b"}))
	assert.Len(t, w.Steps(), 1)
}

func TestBatchKeepsOrderAndBoundsConcurrency(t *testing.T) {
	caller := &recordingCaller{delay: 20 * time.Millisecond}
	inputs := make([]core.AgentInput, 7)
	for i := range inputs {
		inputs[i] = core.AgentInput{Name: fmt.Sprintf("agent_%d", i), Params: json.RawMessage(fmt.Sprintf(`{"i":%d}`, i))}
	}

	outs, err := Batch(context.Background(), caller, inputs, 0)
	require.NoError(t, err)
	got := make([]string, len(outs))
	for i, o := range outs {
		got[i] = o.Agent
	}
	want := []string{"agent_0", "agent_1", "agent_2", "agent_3", "agent_4", "agent_5", "agent_6"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("batch order (-want +got):\n%s", diff)
	}
	assert.LessOrEqual(t, caller.peak.Load(), int32(DefaultConcurrency))
}

func TestBatchFailsOnFirstError(t *testing.T) {
	caller := &recordingCaller{fail: map[string]error{"bad": core.ErrTransport}}
	outs, err := Batch(context.Background(), caller, []core.AgentInput{{Name: "ok"}, {Name: "bad"}, {Name: "ok"}}, 1)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.Contains(t, err.Error(), "batch item 1 (bad)")
	assert.Nil(t, outs)

	outs, err = Batch(context.Background(), caller, nil, 2)
	require.NoError(t, err)
	assert.Empty(t, outs)
}

func TestAccountReviewFeedsCheckIntoStrategy(t *testing.T) {
	caller := &recordingCaller{results: map[string]any{
		"daily_check": &agents.DailyCheckResult{HealthScore: 58, Summary: "冬季活動虧損", UrgentIssues: []string{"暫停冬季暖心"}},
	}}
	w := AccountReview(caller, nil, "2025 Q1", 300000, []string{"提升 ROAS"})
	require.Len(t, w.Steps(), 4)

	results, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"daily_check", "budget_optimization", "creative_performance", "strategy"}, caller.names())

	var params agents.StrategyParams
	require.NoError(t, json.Unmarshal([]byte(results["strategy"].Result.(string)), &params))
	assert.Equal(t, "2025 Q1", params.PlanningHorizon)
	assert.Equal(t, "今日健康分數 58：冬季活動虧損", params.Notes)
	assert.Equal(t, []string{"暫停冬季暖心"}, params.Constraints)
}
