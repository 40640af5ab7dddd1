// Package agents defines the dashboard's structured-output agents: their
// parameters, prompt templates, tool sets and result schemas.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"adsdash/agent-app/adsdata"
	"adsdash/agent-app/core"
	"adsdash/agent-app/tools"
)

var (
	ErrInvalidParams = errors.New("invalid agent parameters")
	ErrUnknownAgent  = errors.New("unknown agent")
)

// Endpoint is the class of model endpoint an agent needs.
type Endpoint string

const (
	EndpointText   Endpoint = "text"
	EndpointVision Endpoint = "vision"
)

// Complexity hints which model tier serves an agent.
type Complexity string

const (
	Fast     Complexity = "fast"
	Balanced Complexity = "balanced"
	Quality  Complexity = "quality"
)

// Env is the read-only data and services shared by runs.
type Env struct {
	Data      *adsdata.Dataset
	Brand     tools.Brand
	Knowledge tools.Searcher
	Vision    tools.Vision
	Pages     tools.PageFetcher
	Now       func() time.Time
	Logger    *zap.Logger
}

// Request is one invocation of an agent by name.
type Request struct {
	Params    json.RawMessage
	Image     *core.Image
	SessionID string
	History   []core.ChatContent
}

type Result struct {
	Output   any
	Params   any
	Info     core.RunInfo
	Warnings []string
}

// Runner is an agent with its parameter and result types erased.
type Runner interface {
	Name() string
	Description() string
	Endpoint() Endpoint
	Complexity() Complexity
	Meta() core.AgentMeta
	// Check decodes and validates params without calling a model.
	Check(params json.RawMessage) (any, []string, error)
	// NewResult returns a pointer to an empty result for decoding stored output.
	NewResult() any
	Run(ctx context.Context, llm core.LLM, env Env, req Request, opts ...core.AgentOption) (Result, error)
}

// Definition declares an agent with parameters P and result R.
type Definition[P any, R any] struct {
	AgentName   string
	Summary     string
	Needs       Endpoint
	Tier        Complexity
	System      string
	Prompt      string
	Tools       []string
	// KnowledgeQuery is what load_knowledge_examples searches for.
	KnowledgeQuery string
	// Validate rejects params whose fields are valid alone but not together.
	Validate func(p P) error
	// Prepare runs on validated params. It fills defaults in P and copies what
	// tools read into Settings.
	Prepare func(p *P, s *tools.Settings)
	// Warn reports inputs that are accepted but likely to weaken the result.
	Warn func(p P) []string
}

func (s *Definition[P, R]) Name() string           { return s.AgentName }
func (s *Definition[P, R]) Description() string    { return s.Summary }
func (s *Definition[P, R]) Complexity() Complexity { return s.Tier }

func (s *Definition[P, R]) NewResult() any { return new(R) }

func (s *Definition[P, R]) Endpoint() Endpoint {
	if s.Needs == "" {
		return EndpointText
	}
	return s.Needs
}

func (s *Definition[P, R]) Meta() core.AgentMeta {
	tr := core.GetToolRegistry()
	meta := core.AgentMeta{
		Name:        s.AgentName,
		Description: s.Summary,
		Endpoint:    string(s.Endpoint()),
		Complexity:  string(s.Tier),
		Tools:       make([]core.ToolDescriptor, 0, len(s.Tools)),
	}
	for _, name := range s.Tools {
		if t := tr.GetTool(name); t != nil {
			meta.Tools = append(meta.Tools, t.GetToolDescriptor())
		}
	}
	if b, err := core.ReflectSchema(new(P)).MarshalJSON(); err == nil {
		meta.Params = b
	}
	if b, err := core.ReflectSchema(new(R)).MarshalJSON(); err == nil {
		meta.Output = b
	}
	return meta
}

// DecodeParams strictly decodes raw params. Empty input means no params.
func (s *Definition[P, R]) DecodeParams(raw json.RawMessage) (P, error) {
	var p P
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrInvalidParams, s.AgentName, err)
	}
	return p, nil
}

func (s *Definition[P, R]) prepare(p *P) (tools.Settings, []string, error) {
	settings := tools.Settings{KnowledgeQuery: s.KnowledgeQuery}
	if err := core.ValidateStruct(p); err != nil {
		return settings, nil, fmt.Errorf("%w: %s: %v", ErrInvalidParams, s.AgentName, err)
	}
	if s.Validate != nil {
		if err := s.Validate(*p); err != nil {
			return settings, nil, fmt.Errorf("%w: %s: %v", ErrInvalidParams, s.AgentName, err)
		}
	}
	if s.Prepare != nil {
		s.Prepare(p, &settings)
	}
	var warnings []string
	if s.Warn != nil {
		warnings = s.Warn(*p)
	}
	return settings, warnings, nil
}

func (s *Definition[P, R]) Check(raw json.RawMessage) (any, []string, error) {
	p, err := s.DecodeParams(raw)
	if err != nil {
		return nil, nil, err
	}
	_, warnings, err := s.prepare(&p)
	if err != nil {
		return nil, nil, err
	}
	return p, warnings, nil
}

// Invoke runs the agent with typed params.
func (s *Definition[P, R]) Invoke(ctx context.Context, llm core.LLM, env Env, p P, req Request, opts ...core.AgentOption) (*R, core.RunInfo, []string, error) {
	settings, warnings, err := s.prepare(&p)
	if err != nil {
		return nil, core.RunInfo{Agent: s.AgentName}, nil, err
	}
	if s.Endpoint() == EndpointVision && (req.Image == nil || len(req.Image.Data) == 0) {
		return nil, core.RunInfo{Agent: s.AgentName}, warnings, fmt.Errorf("%w: %s: an image is required", ErrInvalidParams, s.AgentName)
	}

	deps := &tools.Deps{
		Data:      env.Data,
		Brand:     env.Brand,
		Knowledge: env.Knowledge,
		Vision:    env.Vision,
		Pages:     env.Pages,
		Now:       env.Now,
		Settings:  settings,
	}
	if deps.Brand.Name == "" {
		deps.Brand = tools.DefaultBrand()
	}
	input := core.LLMInput{
		SessionKey: req.SessionID,
		Text:       s.Prompt,
		Labels:     labelsOf(p),
		History:    req.History,
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	input.Labels["brand_name"] = deps.Brand.Name
	input.Labels["today"] = deps.Now().Format("2006-01-02")
	if req.Image != nil {
		deps.Image = &tools.Image{MIMEType: req.Image.MIMEType, Data: req.Image.Data}
		input.Images = []core.Image{*req.Image}
	}

	agent, err := core.NewAgent(s.AgentName, s.Summary, s.System, llm, nil, s.Tools,
		append([]core.AgentOption{core.WithLogger(env.Logger)}, opts...)...)
	if err != nil {
		return nil, core.RunInfo{Agent: s.AgentName}, warnings, err
	}
	out, info, err := core.Invoke[R](ctx, agent, deps, input)
	return out, info, warnings, err
}

func (s *Definition[P, R]) Run(ctx context.Context, llm core.LLM, env Env, req Request, opts ...core.AgentOption) (Result, error) {
	p, err := s.DecodeParams(req.Params)
	if err != nil {
		return Result{Info: core.RunInfo{Agent: s.AgentName}}, err
	}
	out, info, warnings, err := s.Invoke(ctx, llm, env, p, req, opts...)
	res := Result{Params: p, Info: info, Warnings: warnings}
	if err != nil {
		return res, err
	}
	res.Output = out
	return res, nil
}

// labelsOf renders params as template labels keyed by json name. Strings are
// used as is, string lists are joined and everything else is JSON encoded.
// Empty values render as 未提供 so that no placeholder is left in a prompt.
func labelsOf(p any) map[string]string {
	labels := map[string]string{}
	v := reflect.Indirect(reflect.ValueOf(p))
	if v.Kind() != reflect.Struct {
		return labels
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		labels[name] = labelValue(v.Field(i))
	}
	return labels
}

func labelValue(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "未提供"
		}
		// A value the caller set renders even when it is zero.
		return formatLabel(v.Elem())
	}
	if v.IsZero() {
		return "未提供"
	}
	return formatLabel(v)
}

func formatLabel(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.String {
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = v.Index(i).String()
			}
			return strings.Join(parts, "、")
		}
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	}
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return fmt.Sprint(v.Interface())
	}
	return string(b)
}

// defaultTo sets *v to fallback when the caller left it out and returns the
// resulting value.
func defaultTo(v **float64, fallback float64) float64 {
	if *v == nil {
		*v = &fallback
	}
	return **v
}

var registry = map[string]Runner{}

func register(r Runner) {
	if _, dup := registry[r.Name()]; dup {
		panic("agents: duplicate agent " + r.Name())
	}
	registry[r.Name()] = r
}

// Lookup returns the agent registered under name.
func Lookup(name string) (Runner, error) {
	r, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	return r, nil
}

// All returns every agent sorted by name.
func All() []Runner {
	list := make([]Runner, 0, len(registry))
	for _, r := range registry {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}
