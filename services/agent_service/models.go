package agent_service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"adsdash/agent-app/agents"
	"adsdash/agent-app/config"
	"adsdash/agent-app/core"
	"adsdash/agent-app/gemini"
	"adsdash/agent-app/gpt"
)

// LLMFactory returns the model client an agent should run on.
type LLMFactory func(ctx context.Context, r agents.Runner) (core.LLM, error)

var errNoGemini = errors.New("gemini API key is not configured")

// Models builds provider clients from configuration, one per model name.
type Models struct {
	cfg      *config.Config
	selector *config.ModelSelector
	logger   *zap.Logger

	mu     sync.Mutex
	llms   map[string]core.LLM
	client *genai.Client
}

func NewModels(cfg *config.Config, logger *zap.Logger) *Models {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Models{
		cfg:      cfg,
		selector: config.NewModelSelector(cfg, logger),
		logger:   logger,
		llms:     make(map[string]core.LLM),
	}
}

// ForAgent picks the model by the agent's complexity, which configuration
// may override per agent. Vision agents run on the vision model when the
// Gemini provider is active.
func (m *Models) ForAgent(ctx context.Context, r agents.Runner) (core.LLM, error) {
	complexity := m.cfg.ComplexityFor(r.Name(), string(r.Complexity()))
	model := m.selector.Choose(complexity, false)
	if r.Endpoint() == agents.EndpointVision && m.cfg.LLM.Provider == config.ProviderGemini {
		model = m.cfg.LLM.VisionModel
	}
	return m.llm(ctx, model)
}

func (m *Models) llm(ctx context.Context, model string) (core.LLM, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if llm, ok := m.llms[model]; ok {
		return llm, nil
	}
	var (
		llm core.LLM
		err error
	)
	switch m.cfg.LLM.Provider {
	case config.ProviderGemini:
		llm, err = gemini.NewGemini(ctx, m.cfg.LLM.GeminiKey, model)
	default:
		llm, err = gpt.New(gpt.Config{
			APIKey:  m.cfg.LLM.OpenAIKey,
			BaseURL: m.cfg.LLM.OpenAIBaseURL,
			Model:   model,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client for %s: %w", m.cfg.LLM.Provider, model, err)
	}
	m.llms[model] = llm
	m.logger.Debug("model_client_created", zap.String("provider", m.cfg.LLM.Provider), zap.String("model", model))
	return llm, nil
}

func (m *Models) geminiClient(ctx context.Context) (*genai.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}
	if m.cfg.LLM.GeminiKey == "" {
		return nil, errNoGemini
	}
	client, err := gemini.NewClient(ctx, m.cfg.LLM.GeminiKey)
	if err != nil {
		return nil, err
	}
	m.client = client
	return client, nil
}

// Vision, ImageGenerator and Embedder need a Gemini key whatever the text provider is.
func (m *Models) Vision(ctx context.Context) (*gemini.Vision, error) {
	client, err := m.geminiClient(ctx)
	if err != nil {
		return nil, err
	}
	return gemini.NewVision(client, m.cfg.LLM.VisionModel), nil
}

func (m *Models) ImageGenerator(ctx context.Context) (*gemini.ImageGenerator, error) {
	client, err := m.geminiClient(ctx)
	if err != nil {
		return nil, err
	}
	return gemini.NewImageGenerator(client, m.cfg.LLM.ImageModel), nil
}

func (m *Models) Embedder(ctx context.Context) (*gemini.Embedder, error) {
	client, err := m.geminiClient(ctx)
	if err != nil {
		return nil, err
	}
	return gemini.NewEmbedder(client, m.cfg.LLM.EmbeddingModel), nil
}
