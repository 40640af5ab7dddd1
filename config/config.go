// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"adsdash/agent-app/tools"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Data     DataConfig     `yaml:"data"`
	Cache    CacheConfig    `yaml:"cache"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
	Brand    tools.Brand    `yaml:"brand"`
}

// LLMConfig selects the provider and the model names per endpoint class.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // openai, gemini
	OpenAIKey      string `yaml:"openai_api_key"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	OpenAIModel    string `yaml:"openai_model"`
	GeminiKey      string `yaml:"gemini_api_key"`
	GeminiModel    string `yaml:"gemini_model"`
	VisionModel    string `yaml:"vision_model"`
	ImageModel     string `yaml:"image_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Timeout        string `yaml:"timeout"`
	MaxRetries     int    `yaml:"max_retries"`

	// Profiles maps fast, balanced and quality to model names.
	Profiles map[string]string `yaml:"profiles"`
	// AgentComplexity overrides an agent's declared complexity.
	AgentComplexity map[string]string `yaml:"agent_complexity"`
}

type DataConfig struct {
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"`
}

type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type ScheduleConfig struct {
	DailyCheck string `yaml:"daily_check"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			OpenAIModel:    "gpt-5-nano",
			GeminiModel:    "gemini-2.5-flash",
			VisionModel:    "gemini-2.5-flash",
			ImageModel:     "gemini-2.5-flash-image",
			EmbeddingModel: "gemini-embedding-001",
			Timeout:        "120s",
			MaxRetries:     1,
		},
		Data:     DataConfig{File: "data/ads.csv"},
		Cache:    CacheConfig{TTLSeconds: 3600},
		Store:    StoreConfig{Path: "data/agent_history.db"},
		Server:   ServerConfig{Addr: ":8080"},
		Schedule: ScheduleConfig{DailyCheck: "0 9 * * *"},
		Logging:  LoggingConfig{Level: "info"},
		Brand:    tools.DefaultBrand(),
	}
}

// Load reads path when it exists, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	l := &c.LLM
	l.Provider = strings.ToLower(getEnvOrDefault("LLM_PROVIDER", l.Provider))
	l.OpenAIKey = getEnvOrDefault("OPENAI_API_KEY", l.OpenAIKey)
	l.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", l.OpenAIBaseURL)
	l.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", l.OpenAIModel)
	l.GeminiKey = getEnvOrDefault("GEMINI_API_KEY", l.GeminiKey)
	l.GeminiModel = getEnvOrDefault("GEMINI_MODEL", l.GeminiModel)
	l.VisionModel = getEnvOrDefault("GEMINI_VISION_MODEL", l.VisionModel)
	l.ImageModel = getEnvOrDefault("GEMINI_IMAGE_MODEL", l.ImageModel)
	l.EmbeddingModel = getEnvOrDefault("GEMINI_EMBEDDING_MODEL", l.EmbeddingModel)
	l.Timeout = getEnvOrDefault("MODEL_TIMEOUT", l.Timeout)
	for _, tier := range []string{"fast", "balanced", "quality"} {
		if v := os.Getenv("MODEL_" + strings.ToUpper(tier)); v != "" {
			if l.Profiles == nil {
				l.Profiles = map[string]string{}
			}
			l.Profiles[tier] = v
		}
	}
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		if agent, ok := strings.CutSuffix(key, "_COMPLEXITY"); ok && agent != "" && value != "" {
			if l.AgentComplexity == nil {
				l.AgentComplexity = map[string]string{}
			}
			l.AgentComplexity[strings.ToLower(agent)] = strings.ToLower(value)
		}
	}

	c.Data.File = getEnvOrDefault("DATA_FILE_PATH", c.Data.File)
	c.Store.Path = getEnvOrDefault("AGENT_HISTORY_DB", c.Store.Path)
	c.Server.Addr = getEnvOrDefault("HTTP_ADDR", c.Server.Addr)
	c.Schedule.DailyCheck = getEnvOrDefault("DAILY_CHECK_SCHEDULE", c.Schedule.DailyCheck)
	c.Telegram.Token = getEnvOrDefault("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)

	var err error
	if c.Cache.Enabled, err = getBoolEnv("ENABLE_AGENT_CACHE", c.Cache.Enabled); err != nil {
		return err
	}
	if c.Data.Watch, err = getBoolEnv("DATA_WATCH", c.Data.Watch); err != nil {
		return err
	}
	if c.Cache.TTLSeconds, err = getIntEnv("AGENT_CACHE_TTL", c.Cache.TTLSeconds); err != nil {
		return err
	}
	if l.MaxRetries, err = getIntEnv("MODEL_MAX_RETRIES", l.MaxRetries); err != nil {
		return err
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLM.Provider)
	}
	if _, err := c.ModelTimeout(); err != nil {
		return err
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %d", c.Cache.TTLSeconds)
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxRetries > 1 {
		return fmt.Errorf("max retries must be 0 or 1, got %d", c.LLM.MaxRetries)
	}
	return nil
}

// ModelTimeout bounds one agent run. Zero means no limit.
func (c *Config) ModelTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid model timeout %q: %w", c.LLM.Timeout, err)
	}
	return d, nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// TextModel is the default text model of the configured provider.
func (c *Config) TextModel() string {
	if c.LLM.Provider == ProviderGemini {
		return c.LLM.GeminiModel
	}
	return c.LLM.OpenAIModel
}

// ComplexityFor returns the configured complexity override for agent, or fallback.
func (c *Config) ComplexityFor(agent, fallback string) string {
	if v, ok := c.LLM.AgentComplexity[strings.ToLower(agent)]; ok {
		return v
	}
	return fallback
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
