// Package scheduler runs the daily account check on a cron schedule and
// pushes its digest.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"adsdash/agent-app/agents"
	"adsdash/agent-app/core"
	"adsdash/agent-app/notify"
)

// Caller runs an agent by name.
type Caller interface {
	CallAgent(ctx context.Context, in core.AgentInput, img *core.Image) (core.AgentOutput, error)
}

// Notifier delivers a text report.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Scheduler struct {
	caller   Caller
	notifier Notifier
	timeout  time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
	last *agents.DailyCheckResult
}

// New returns a stopped scheduler. notifier may be nil, in which case
// results are only logged.
func New(caller Caller, notifier Notifier, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{
		caller:   caller,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// AddDailyCheck schedules the check with a five-field cron expression or a
// descriptor such as @daily.
func (s *Scheduler) AddDailyCheck(spec string, params json.RawMessage) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunDailyCheck(ctx, params); err != nil {
			s.logger.Error("daily_check_failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule daily check %q: %w", spec, err)
	}
	s.logger.Info("daily_check_scheduled", zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running check to finish or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunDailyCheck runs the check now, bypassing the cache, and sends the digest.
func (s *Scheduler) RunDailyCheck(ctx context.Context, params json.RawMessage) (*agents.DailyCheckResult, error) {
	out, err := s.caller.CallAgent(ctx, core.AgentInput{
		Name:      agents.DailyCheck.Name(),
		SessionID: "scheduler",
		Params:    params,
		NoCache:   true,
	}, nil)
	if err != nil {
		return nil, err
	}
	result, ok := out.Result.(*agents.DailyCheckResult)
	if !ok {
		return nil, fmt.Errorf("daily check returned %T", out.Result)
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()
	s.logger.Info("daily_check_finished",
		zap.String("run_id", out.RunID),
		zap.Int("health_score", result.HealthScore),
		zap.Int("problem_campaigns", len(result.ProblemCampaigns)))

	if s.notifier == nil {
		return result, nil
	}
	if err := s.notifier.Notify(ctx, notify.DailyDigest(result)); err != nil {
		return result, fmt.Errorf("send daily digest: %w", err)
	}
	return result, nil
}

// Last returns the most recent successful check, if any.
func (s *Scheduler) Last() *agents.DailyCheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
