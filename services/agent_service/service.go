// Package agent_service runs agents on behalf of the HTTP API, the CLI and
// the scheduler. It validates params, serves cached results, records every
// run and keeps chat sessions.
package agent_service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adsdash/agent-app/adsdata"
	"adsdash/agent-app/agents"
	"adsdash/agent-app/cache"
	"adsdash/agent-app/core"
	"adsdash/agent-app/store"
)

var ErrNoStore = errors.New("run history is not configured")

type Options struct {
	LLM LLMFactory
	// Data supplies the dataset of every run. It may be reloaded between runs.
	Data *adsdata.Source
	// Env carries everything but Data.
	Env   agents.Env
	Cache *cache.Cache
	Store *store.Store
	// Images renders image prompts; nil disables rendering.
	Images  agents.ImageRenderer
	Timeout time.Duration
	// RunOptions apply to every agent run, such as the retry budget.
	RunOptions []core.AgentOption
	Logger     *zap.Logger
}

type Service struct {
	llm     LLMFactory
	data    *adsdata.Source
	env     agents.Env
	cache   *cache.Cache
	store   *store.Store
	images  agents.ImageRenderer
	chat    *agents.Conversation
	timeout time.Duration
	runOpts []core.AgentOption
	logger  *zap.Logger
}

// cachedRun is what the cache holds per key. The result is kept encoded so
// every hit decodes its own copy.
type cachedRun struct {
	Result json.RawMessage
	Info   core.RunInfo
}

func New(opts Options) (*Service, error) {
	if opts.LLM == nil {
		return nil, errors.New("agent service: an LLM factory is required")
	}
	if opts.Data == nil {
		opts.Data = adsdata.Static(adsdata.New(nil))
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(false, time.Hour)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Env.Logger = opts.Logger
	return &Service{
		llm:     opts.LLM,
		data:    opts.Data,
		env:     opts.Env,
		cache:   opts.Cache,
		store:   opts.Store,
		images:  opts.Images,
		chat:    agents.NewConversation(),
		timeout: opts.Timeout,
		runOpts: opts.RunOptions,
		logger:  opts.Logger,
	}, nil
}

func (s *Service) currentEnv() agents.Env {
	env := s.env
	env.Data = s.data.Dataset()
	return env
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ListAgents describes every registered agent in name order.
func (s *Service) ListAgents() []core.AgentMeta {
	all := agents.All()
	out := make([]core.AgentMeta, len(all))
	for i, r := range all {
		out[i] = r.Meta()
	}
	return out
}

func (s *Service) Describe(name string) (core.AgentMeta, error) {
	r, err := agents.Lookup(name)
	if err != nil {
		return core.AgentMeta{}, err
	}
	return r.Meta(), nil
}

// CallAgent runs one agent. Results of image-free runs are cached under the
// agent name and its validated params; NoCache skips the lookup but still
// refreshes the entry.
func (s *Service) CallAgent(ctx context.Context, in core.AgentInput, img *core.Image) (core.AgentOutput, error) {
	out := core.AgentOutput{RunID: uuid.NewString(), Agent: in.Name}
	if err := core.ValidateStruct(&in); err != nil {
		return out, fmt.Errorf("%w: %v", agents.ErrInvalidParams, err)
	}
	r, err := agents.Lookup(in.Name)
	if err != nil {
		return out, err
	}
	params, warnings, err := r.Check(in.Params)
	if err != nil {
		return out, err
	}
	out.Warnings = warnings

	canonical, err := json.Marshal(params)
	if err != nil {
		return out, fmt.Errorf("encode params: %w", err)
	}
	key := cache.Key(r.Name(), canonical)
	cacheable := img == nil
	if cacheable && !in.NoCache {
		if v, ok := s.cache.Get(key); ok {
			hit := v.(cachedRun)
			result := r.NewResult()
			err := json.Unmarshal(hit.Result, result)
			if err == nil {
				out.Result, out.Info, out.Cached = result, hit.Info, true
				out.Info.ToolCalls = slices.Clone(hit.Info.ToolCalls)
				s.logger.Info("agent_cache_hit", zap.String("agent", r.Name()), zap.String("run_id", out.RunID))
				s.record(ctx, out, in, canonical, nil)
				return out, nil
			}
			s.logger.Warn("agent_cache_corrupt", zap.String("agent", r.Name()), zap.Error(err))
		}
	}

	llm, err := s.llm(ctx, r)
	if err != nil {
		return out, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	s.logger.Info("agent_run_started", zap.String("agent", r.Name()), zap.String("run_id", out.RunID))
	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, runErr := r.Run(runCtx, llm, s.currentEnv(), agents.Request{
		Params:    in.Params,
		Image:     img,
		SessionID: in.SessionID,
	}, s.runOpts...)
	out.Info = res.Info
	if runErr == nil {
		out.Result = res.Output
		if cacheable {
			s.cacheResult(key, r.Name(), res)
		}
	}
	s.logger.Info("agent_run_finished",
		zap.String("agent", r.Name()),
		zap.String("run_id", out.RunID),
		zap.Int("turns", res.Info.Turns),
		zap.Duration("duration", res.Info.Duration),
		zap.Error(runErr))
	s.record(ctx, out, in, canonical, runErr)
	return out, runErr
}

func (s *Service) cacheResult(key, agent string, res agents.Result) {
	b, err := json.Marshal(res.Output)
	if err != nil {
		s.logger.Warn("agent_cache_encode_failed", zap.String("agent", agent), zap.Error(err))
		return
	}
	info := res.Info
	info.ToolCalls = slices.Clone(res.Info.ToolCalls)
	s.cache.Set(key, cachedRun{Result: b, Info: info})
}

// Chat sends one message in a session and records it like any other run.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (core.AgentOutput, error) {
	out := core.AgentOutput{RunID: uuid.NewString(), Agent: agents.Conversational.Name()}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	llm, err := s.llm(ctx, agents.Conversational)
	if err != nil {
		return out, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, info, err := s.chat.Send(runCtx, llm, s.currentEnv(), sessionID, message, s.runOpts...)
	out.Info = info
	if err == nil {
		out.Result = res
	}
	params, _ := json.Marshal(agents.ChatParams{Message: message})
	s.record(ctx, out, core.AgentInput{Name: out.Agent, SessionID: sessionID}, params, err)
	return out, err
}

// RenderImage renders one prompt of an image_prompt result.
func (s *Service) RenderImage(ctx context.Context, result *agents.ImagePromptResult, variant int) ([]byte, string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return agents.RenderImage(ctx, s.images, result, variant)
}

func (s *Service) ChatHistory(sessionID string) []core.ChatContent {
	return s.chat.History(sessionID)
}

func (s *Service) ResetChat(sessionID string) {
	s.chat.Reset(sessionID)
}

// record stores the run and its token usage. Failures are logged only so
// that a broken history database never fails an agent call.
func (s *Service) record(ctx context.Context, out core.AgentOutput, in core.AgentInput, params json.RawMessage, runErr error) {
	if s.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	run := store.Run{
		ID:         out.RunID,
		Agent:      out.Agent,
		SessionID:  in.SessionID,
		Params:     params,
		Model:      out.Info.Model,
		Turns:      out.Info.Turns,
		Retries:    out.Info.Retries,
		ToolCalls:  len(out.Info.ToolCalls),
		TotalToken: int(out.Info.Stats.TotalTokenCount),
		Duration:   out.Info.Duration,
		Cached:     out.Cached,
		CreatedAt:  time.Now(),
	}
	if out.Result != nil {
		if b, err := json.Marshal(out.Result); err == nil {
			run.Result = b
		}
	}
	if runErr != nil {
		run.Error = runErr.Error()
		run.ErrorKind = ErrorKind(runErr)
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logger.Warn("agent_history_failed", zap.String("agent", out.Agent), zap.Error(err))
		return
	}
	s.logger.Debug("agent_history_recorded", zap.String("agent", out.Agent), zap.String("run_id", out.RunID))

	if out.Cached || out.Info.Stats.TotalTokenCount == 0 {
		return
	}
	err := s.store.AddUsage(ctx, store.Usage{
		Model:  out.Info.Model,
		Agent:  out.Agent,
		Input:  int(out.Info.Stats.InputTokenCount),
		Output: int(out.Info.Stats.OutputTokenCount),
		Total:  int(out.Info.Stats.TotalTokenCount),
	})
	if err != nil {
		s.logger.Warn("usage_record_failed", zap.String("agent", out.Agent), zap.Error(err))
	}
}

// ErrorKind names the failure class of err for history and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, agents.ErrInvalidParams):
		return "invalid_params"
	case errors.Is(err, agents.ErrUnknownAgent):
		return "unknown_agent"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	switch core.KindOf(err) {
	case core.ErrValidation:
		return "validation"
	case core.ErrTool:
		return "tool"
	case core.ErrTransport:
		return "transport"
	}
	return "internal"
}

func (s *Service) History(ctx context.Context, agent string, limit int) ([]store.Run, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Runs(ctx, agent, limit)
}

func (s *Service) Run(ctx context.Context, id string) (store.Run, bool, error) {
	if s.store == nil {
		return store.Run{}, false, ErrNoStore
	}
	return s.store.Run(ctx, id)
}

func (s *Service) Usage(ctx context.Context) ([]store.UsageSummary, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Usage(ctx)
}

func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *Service) ClearCache() {
	s.cache.Clear()
	s.logger.Info("agent_cache_cleared")
}

func (s *Service) CleanupCache() int {
	return s.cache.Cleanup()
}
