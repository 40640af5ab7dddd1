package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"
)

const (
	defaultMaxToolRounds = 8
	defaultMaxRetries    = 1
)

var systemAgentContext = `
{{agent_system_context}}

You may call the tools you have been given to look up ad performance data and guidelines
before answering. Call tools only with the documented arguments. Base every number you
report on tool results; never invent metrics.
`

var correctionPrompt = `Your previous reply could not be accepted:
{{problems}}
Reply again with a single corrected JSON object that satisfies the schema.`

type AgentOption func(*Agent)

func WithLogger(logger *zap.Logger) AgentOption {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxToolRounds bounds how many tool round-trips one run may take.
func WithMaxToolRounds(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxToolRounds = n
		}
	}
}

// WithMaxRetries sets the retry budget shared by transport and validation failures.
func WithMaxRetries(n int) AgentOption {
	return func(a *Agent) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

func NewAgent(name string, description string, systemContext string, llm LLM, registry *ToolRegistry, toolNames []string, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, fmt.Errorf("agent %s: llm is required", name)
	}
	if registry == nil {
		registry = GetToolRegistry()
	}
	agent := &Agent{
		Name:          name,
		Description:   description,
		SystemContext: systemContext,
		LLM:           llm,
		toolRepo:      NewToolRepo(registry),
		logger:        zap.NewNop(),
		maxToolRounds: defaultMaxToolRounds,
		maxRetries:    defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(agent)
	}
	for _, tool := range toolNames {
		if err := agent.RegisterTool(tool); err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
	}
	return agent, nil
}

type Agent struct {
	Name          string
	Description   string
	SystemContext string
	LLM           LLM
	toolRepo      *ToolRepo
	logger        *zap.Logger
	maxToolRounds int
	maxRetries    int
}

// ToolCallRecord describes one executed tool call.
type ToolCallRecord struct {
	Name      string        `json:"name"`
	Arguments string        `json:"arguments"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// RunInfo summarizes a finished run, successful or not.
type RunInfo struct {
	Agent     string           `json:"agent"`
	Model     string           `json:"model"`
	Turns     int              `json:"turns"`
	Retries   int              `json:"retries"`
	ToolCalls []ToolCallRecord `json:"tool_calls"`
	Stats     Stats            `json:"stats"`
	Duration  time.Duration    `json:"duration"`
}

func (agent *Agent) GetName() string {
	return agent.Name
}

func (agent *Agent) GetDescription() string {
	return agent.Description
}

func (agent *Agent) RegisterTool(name string) error {
	return agent.toolRepo.RegisterTool(name)
}

func (agent *Agent) Tools() []ToolDescriptor {
	return agent.toolRepo.ListToolDescriptors()
}

// Run renders the prompts, lets the model call tools with deps and decodes the
// final reply into out, which must be a pointer to the output struct.
func (agent *Agent) Run(ctx context.Context, deps any, input LLMInput, out any) (RunInfo, error) {
	started := time.Now()
	info := RunInfo{Agent: agent.Name}
	if namer, ok := agent.LLM.(ModelNamer); ok {
		info.Model = namer.ModelName()
	}

	outValue := reflect.ValueOf(out)
	if outValue.Kind() != reflect.Ptr || outValue.IsNil() {
		return info, fmt.Errorf("agent %s: output must be a non-nil pointer", agent.Name)
	}
	schema := ReflectSchema(out)
	schemaJSON, err := schema.MarshalJSON()
	if err != nil {
		return info, fmt.Errorf("agent %s: %w", agent.Name, err)
	}
	format := &OutputFormat{Name: agent.Name + "_result", Description: agent.Description, Schema: schemaJSON}

	systemContext := ReplaceLabels(systemAgentContext, map[string]string{
		"agent_system_context": ReplaceLabels(agent.SystemContext, input.Labels),
	}) + GetOutputPrompt(*format)

	history := append([]ChatContent(nil), input.History...)
	userText := ReplaceLabels(input.Text, input.Labels)
	history = append(history, ChatContent{Role: RoleUser, Content: userText, Images: input.Images})

	logger := agent.logger.With(zap.String("agent", agent.Name), zap.String("session", input.SessionKey))
	logger.Debug("agent_run_started", zap.Int("tools", len(agent.toolRepo.tools)))

	err = agent.run(ctx, logger, deps, GenerateRequest{
		SystemContext: systemContext,
		History:       history,
		Tools:         agent.toolRepo.ListToolDescriptors(),
		Output:        format,
	}, schema, outValue, &info)
	info.Duration = time.Since(started)
	if err != nil {
		logger.Warn("agent_run_failed", zap.Error(err), zap.Int("turns", info.Turns))
		return info, err
	}
	logger.Debug("agent_run_finished",
		zap.Int("turns", info.Turns),
		zap.Int("tool_calls", len(info.ToolCalls)),
		zap.Int32("total_tokens", info.Stats.TotalTokenCount),
		zap.Duration("duration", info.Duration))
	return info, nil
}

func (agent *Agent) run(ctx context.Context, logger *zap.Logger, deps any, req GenerateRequest, schema *jsonschema.Schema, out reflect.Value, info *RunInfo) error {
	rounds := 0
	for {
		output, err := agent.generate(ctx, logger, req, info)
		if err != nil {
			return agent.fail(ErrTransport, info, err)
		}

		if len(output.ToolCalls) > 0 {
			rounds++
			if rounds > agent.maxToolRounds {
				return agent.fail(ErrTool, info, ErrMaxToolRounds)
			}
			req.History = append(req.History, ChatContent{Role: RoleAssistant, Content: output.Text, ToolCalls: output.ToolCalls})
			for _, call := range output.ToolCalls {
				result, err := agent.executeTool(ctx, logger, deps, call, info)
				if err != nil {
					return agent.fail(ErrTool, info, err)
				}
				req.History = append(req.History, NewToolContent(call, result))
			}
			continue
		}

		out.Elem().Set(reflect.Zero(out.Elem().Type()))
		err = DecodeOutput(output.Text, schema, out.Interface())
		if err == nil {
			return nil
		}
		logger.Warn("agent_output_invalid", zap.Error(err), zap.Int("retries", info.Retries))
		if info.Retries >= agent.maxRetries {
			return agent.fail(ErrValidation, info, err)
		}
		info.Retries++
		problems := err.Error()
		var verr *ValidationError
		if errors.As(err, &verr) {
			problems = "- " + strings.Join(verr.Problems, "\n- ")
		}
		req.History = append(req.History,
			NewContent(RoleAssistant, output.Text),
			NewContent(RoleUser, ReplaceLabels(correctionPrompt, map[string]string{"problems": problems})))
	}
}

// generate calls the model, retrying once on a retryable transport failure
// while the shared retry budget allows.
func (agent *Agent) generate(ctx context.Context, logger *zap.Logger, req GenerateRequest, info *RunInfo) (LLMOutput, error) {
	for {
		if err := ctx.Err(); err != nil {
			return LLMOutput{}, err
		}
		info.Turns++
		output, err := agent.LLM.Generate(ctx, req)
		if err == nil {
			info.Stats.Add(output.Stats)
			if output.Model != "" {
				info.Model = output.Model
			}
			return output, nil
		}
		if info.Retries >= agent.maxRetries || !Retryable(err) {
			return LLMOutput{}, err
		}
		info.Retries++
		logger.Warn("model_call_retry", zap.Error(err))
	}
}

// executeTool runs one tool call. Unknown tools and malformed arguments are
// reported back to the model; handler failures abort the run.
func (agent *Agent) executeTool(ctx context.Context, logger *zap.Logger, deps any, call ToolCall, info *RunInfo) (string, error) {
	started := time.Now()
	record := ToolCallRecord{Name: call.ToolName, Arguments: call.Arguments}
	defer func() {
		record.Duration = time.Since(started)
		info.ToolCalls = append(info.ToolCalls, record)
	}()

	executor := agent.toolRepo.GetTool(call.ToolName)
	if executor == nil {
		record.Error = ErrUnknownTool.Error()
		logger.Warn("tool_unknown", zap.String("tool", call.ToolName))
		return toolErrorResult(fmt.Sprintf("%s: %s", ErrUnknownTool, call.ToolName)), nil
	}
	result, err := executor.Execute(ctx, deps, call.Arguments)
	if errors.Is(err, ErrInvalidToolInput) {
		record.Error = err.Error()
		logger.Warn("tool_arguments_invalid", zap.String("tool", call.ToolName), zap.Error(err))
		return toolErrorResult(err.Error()), nil
	}
	if err != nil {
		record.Error = err.Error()
		return "", err
	}
	logger.Debug("tool_called", zap.String("tool", call.ToolName), zap.Int("result_bytes", len(result)))
	return result, nil
}

func (agent *Agent) fail(kind error, info *RunInfo, err error) error {
	return &AgentError{Agent: agent.Name, Kind: kind, Attempts: info.Turns, Err: err}
}

func toolErrorResult(message string) string {
	b, _ := json.Marshal(map[string]string{"error": message})
	return string(b)
}

// Invoke runs agent and returns a freshly decoded T.
func Invoke[T any](ctx context.Context, agent *Agent, deps any, input LLMInput) (*T, RunInfo, error) {
	out := new(T)
	info, err := agent.Run(ctx, deps, input, out)
	if err != nil {
		return nil, info, err
	}
	return out, info, nil
}
