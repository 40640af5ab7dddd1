// Package workflow chains agent runs: dependency-ordered workflows and
// bounded parallel batches.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adsdash/agent-app/agents"
	"adsdash/agent-app/core"
)

// DefaultConcurrency bounds a batch when no limit is given.
const DefaultConcurrency = 3

var (
	ErrDependencyNotRun = errors.New("depends on a step that has not run")
	ErrDuplicateStep    = errors.New("duplicate step")
)

// Caller runs an agent by name.
type Caller interface {
	CallAgent(ctx context.Context, in core.AgentInput, img *core.Image) (core.AgentOutput, error)
}

// Step runs one agent. Build, when set, derives the params from the outputs
// of earlier steps and replaces Params.
type Step struct {
	Name      string
	Agent     string
	Params    json.RawMessage
	DependsOn []string
	Build     func(results map[string]core.AgentOutput) (json.RawMessage, error)
}

// Workflow runs its steps one at a time in the order they were added.
// A step may only depend on steps added before it.
type Workflow struct {
	name   string
	steps  []Step
	seen   map[string]bool
	caller Caller
	logger *zap.Logger
}

func New(name string, caller Caller, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{name: name, seen: map[string]bool{}, caller: caller, logger: logger}
}

func (w *Workflow) Name() string {
	return w.name
}

func (w *Workflow) Add(step Step) error {
	if step.Name == "" || step.Agent == "" {
		return errors.New("workflow step needs a name and an agent")
	}
	if w.seen[step.Name] {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, step.Name)
	}
	w.seen[step.Name] = true
	w.steps = append(w.steps, step)
	return nil
}

func (w *Workflow) Steps() []Step {
	return append([]Step(nil), w.steps...)
}

// Run executes every step and returns their outputs by step name. The first
// failing step stops the workflow.
func (w *Workflow) Run(ctx context.Context) (map[string]core.AgentOutput, error) {
	started := time.Now()
	w.logger.Info("workflow_start", zap.String("workflow", w.name), zap.Int("steps", len(w.steps)))
	results := make(map[string]core.AgentOutput, len(w.steps))

	for _, step := range w.steps {
		for _, dep := range step.DependsOn {
			if _, ok := results[dep]; !ok {
				return results, fmt.Errorf("step %q %w %q", step.Name, ErrDependencyNotRun, dep)
			}
		}
		params := step.Params
		if step.Build != nil {
			built, err := step.Build(results)
			if err != nil {
				return results, fmt.Errorf("step %q: build params: %w", step.Name, err)
			}
			params = built
		}
		out, err := w.caller.CallAgent(ctx, core.AgentInput{
			Name:      step.Agent,
			SessionID: "workflow:" + w.name,
			Params:    params,
		}, nil)
		if err != nil {
			return results, fmt.Errorf("step %q: %w", step.Name, err)
		}
		results[step.Name] = out
		w.logger.Debug("workflow_step_finished", zap.String("workflow", w.name), zap.String("step", step.Name), zap.String("run_id", out.RunID))
	}

	w.logger.Info("workflow_finished", zap.String("workflow", w.name), zap.Duration("duration", time.Since(started)))
	return results, nil
}

// Batch runs inputs with at most limit calls in flight and returns the
// outputs in input order. The first error cancels the remaining calls.
func Batch(ctx context.Context, caller Caller, inputs []core.AgentInput, limit int) ([]core.AgentOutput, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	outputs := make([]core.AgentOutput, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			out, err := caller.CallAgent(gctx, in, nil)
			if err != nil {
				return fmt.Errorf("batch item %d (%s): %w", i, in.Name, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// AccountReview checks the account, then plans budget and strategy from what
// the check found.
func AccountReview(caller Caller, logger *zap.Logger, horizon string, budget float64, goals []string) *Workflow {
	w := New("account_review", caller, logger)
	steps := []Step{
		{Name: "check", Agent: agents.DailyCheck.Name()},
		{Name: "budget", Agent: agents.BudgetOptimization.Name(), DependsOn: []string{"check"}},
		{Name: "creatives", Agent: agents.CreativePerformance.Name()},
		{
			Name:      "strategy",
			Agent:     agents.Strategy.Name(),
			DependsOn: []string{"check", "budget"},
			Build: func(results map[string]core.AgentOutput) (json.RawMessage, error) {
				params := agents.StrategyParams{PlanningHorizon: horizon, TotalBudget: budget, BusinessGoals: goals}
				if check, ok := results["check"].Result.(*agents.DailyCheckResult); ok {
					params.Notes = fmt.Sprintf("今日健康分數 %d：%s", check.HealthScore, check.Summary)
					params.Constraints = check.UrgentIssues
				}
				return json.Marshal(params)
			},
		},
	}
	for _, s := range steps {
		// Step names are fixed and unique.
		_ = w.Add(s)
	}
	return w
}
