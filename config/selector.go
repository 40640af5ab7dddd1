package config

import (
	"strings"

	"go.uber.org/zap"
)

// Complexity tiers understood by the selector.
const (
	TierFast     = "fast"
	TierBalanced = "balanced"
	TierQuality  = "quality"
)

var defaultProfiles = map[string]map[string]string{
	ProviderOpenAI: {
		TierFast:     "gpt-5-nano",
		TierBalanced: "gpt-5-nano-instruct",
		TierQuality:  "gpt-4.1-mini",
	},
	ProviderGemini: {
		TierFast:     "gemini-2.5-flash-lite",
		TierBalanced: "gemini-2.5-flash",
		TierQuality:  "gemini-2.5-pro",
	},
}

// ModelSelector picks a model name for a task complexity.
type ModelSelector struct {
	profiles map[string]string
	fallback string
	logger   *zap.Logger
}

// NewModelSelector merges the configured profiles over the provider's
// defaults. Unknown complexities resolve to the provider's text model.
func NewModelSelector(cfg *Config, logger *zap.Logger) *ModelSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	profiles := map[string]string{}
	for tier, model := range defaultProfiles[cfg.LLM.Provider] {
		profiles[tier] = model
	}
	for tier, model := range cfg.LLM.Profiles {
		profiles[strings.ToLower(tier)] = model
	}
	return &ModelSelector{profiles: profiles, fallback: cfg.TextModel(), logger: logger}
}

func (s *ModelSelector) Choose(complexity string, preferQuality bool) string {
	complexity = strings.ToLower(complexity)
	model, ok := s.profiles[complexity]
	if preferQuality {
		if q, found := s.profiles[TierQuality]; found {
			model, ok = q, true
		}
	}
	if !ok || model == "" {
		model = s.fallback
	}
	s.logger.Debug("model_selected",
		zap.String("complexity", complexity),
		zap.String("model", model),
		zap.Bool("prefer_quality", preferQuality))
	return model
}
