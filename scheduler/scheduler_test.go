package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"adsdash/agent-app/agents"
	"adsdash/agent-app/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCaller struct {
	mu     sync.Mutex
	inputs []core.AgentInput
	result any
	err    error
}

func (c *fakeCaller) CallAgent(_ context.Context, in core.AgentInput, _ *core.Image) (core.AgentOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, in)
	if c.err != nil {
		return core.AgentOutput{}, c.err
	}
	return core.AgentOutput{RunID: "run-1", Agent: in.Name, Result: c.result}, nil
}

func (c *fakeCaller) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inputs)
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return n.err
}

func checkResult() *agents.DailyCheckResult {
	return &agents.DailyCheckResult{CheckDate: "2024-07-10", TotalCampaigns: 3, HealthScore: 71, Summary: "整體穩定"}
}

func TestRunDailyCheckSendsDigest(t *testing.T) {
	caller := &fakeCaller{result: checkResult()}
	notifier := &fakeNotifier{}
	s := New(caller, notifier, time.Second, nil)

	params := json.RawMessage(`{"target_roas":3}`)
	got, err := s.RunDailyCheck(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 71, got.HealthScore)
	assert.Same(t, got, s.Last())

	require.Len(t, caller.inputs, 1)
	assert.Equal(t, "daily_check", caller.inputs[0].Name)
	assert.True(t, caller.inputs[0].NoCache)
	assert.JSONEq(t, `{"target_roas":3}`, string(caller.inputs[0].Params))

	require.Len(t, notifier.texts, 1)
	assert.Contains(t, notifier.texts[0], "健康分數：71/100")
}

func TestRunDailyCheckFailures(t *testing.T) {
	ctx := context.Background()

	s := New(&fakeCaller{err: core.ErrTransport}, &fakeNotifier{}, 0, nil)
	_, err := s.RunDailyCheck(ctx, nil)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.Nil(t, s.Last())

	s = New(&fakeCaller{result: "not a check"}, nil, 0, nil)
	_, err = s.RunDailyCheck(ctx, nil)
	assert.Error(t, err)

	s = New(&fakeCaller{result: checkResult()}, &fakeNotifier{err: errors.New("chat not found")}, 0, nil)
	got, err := s.RunDailyCheck(ctx, nil)
	assert.ErrorContains(t, err, "chat not found")
	assert.NotNil(t, got)

	s = New(&fakeCaller{result: checkResult()}, nil, 0, nil)
	got, err = s.RunDailyCheck(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestAddDailyCheckRejectsBadSpec(t *testing.T) {
	s := New(&fakeCaller{}, nil, 0, nil)
	assert.Error(t, s.AddDailyCheck("every morning", nil))
	assert.NoError(t, s.AddDailyCheck("0 9 * * *", nil))
	assert.NoError(t, s.AddDailyCheck("@daily", nil))
}

func TestScheduledCheckRunsAndStops(t *testing.T) {
	caller := &fakeCaller{result: checkResult()}
	notifier := &fakeNotifier{}
	s := New(caller, notifier, time.Second, nil)
	require.NoError(t, s.AddDailyCheck("@every 1s", nil))

	s.Start()
	require.Eventually(t, func() bool { return caller.calls() > 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
