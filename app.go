package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"adsdash/agent-app/adsdata"
	"adsdash/agent-app/agents"
	"adsdash/agent-app/cache"
	"adsdash/agent-app/core"
	"adsdash/agent-app/knowledge"
	"adsdash/agent-app/notify"
	"adsdash/agent-app/scheduler"
	"adsdash/agent-app/services/agent_service"
	"adsdash/agent-app/store"
	"adsdash/agent-app/webscan"
)

// app is everything a command needs, built from the loaded config.
type app struct {
	store     *store.Store
	data      *adsdata.Source
	models    *agent_service.Models
	knowledge *knowledge.Base
	svc       *agent_service.Service
}

func newApp(ctx context.Context) (*app, error) {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	data, err := adsdata.Open(cfg.Data.File, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load ad data: %w", err)
	}

	models := agent_service.NewModels(cfg, logger)
	var embed knowledge.Embedder
	if e, err := models.Embedder(ctx); err == nil {
		embed = e
	} else {
		logger.Info("embeddings_disabled", zap.Error(err))
	}
	kb := knowledge.New(s, embed, logger)

	env := agents.Env{
		Brand:     cfg.Brand,
		Knowledge: kb,
		Pages:     webscan.NewScanner(logger),
		Logger:    logger,
	}
	if v, err := models.Vision(ctx); err == nil {
		env.Vision = v
	} else {
		logger.Info("vision_disabled", zap.Error(err))
	}
	var images agents.ImageRenderer
	if g, err := models.ImageGenerator(ctx); err == nil {
		images = g
	}

	runTimeout, err := cfg.ModelTimeout()
	if err != nil {
		s.Close()
		return nil, err
	}
	svc, err := agent_service.New(agent_service.Options{
		LLM:        models.ForAgent,
		Data:       data,
		Env:        env,
		Cache:      cache.New(cfg.Cache.Enabled, cfg.CacheTTL()),
		Store:      s,
		Images:     images,
		Timeout:    runTimeout,
		RunOptions: []core.AgentOption{core.WithMaxRetries(cfg.LLM.MaxRetries)},
		Logger:     logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return &app{store: s, data: data, models: models, knowledge: kb, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("store_close_failed", zap.Error(err))
	}
}

// notifier is nil unless Telegram is configured.
func (a *app) notifier() (scheduler.Notifier, error) {
	if cfg.Telegram.Token == "" {
		return nil, nil
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
	if err != nil {
		return nil, err
	}
	return tg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
