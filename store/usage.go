package store

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Usage is the token count of one agent run.
type Usage struct {
	Model  string
	Agent  string
	Input  int
	Output int
	Total  int
}

// UsageSummary aggregates usage per model and agent.
type UsageSummary struct {
	Model  string  `json:"model"`
	Agent  string  `json:"agent"`
	Calls  int     `json:"calls"`
	Input  int     `json:"input_tokens"`
	Output int     `json:"output_tokens"`
	Total  int     `json:"total_tokens"`
	Cost   float64 `json:"estimated_cost"`
}

// EstimateCost prices tokens in USD by model family, per 1K tokens.
func EstimateCost(model string, tokens int) float64 {
	rate := 0.0005
	switch m := strings.ToLower(model); {
	case strings.Contains(m, "gpt-4"):
		rate = 0.015
	case strings.Contains(m, "gpt-5"):
		rate = 0.0004
	}
	return float64(tokens) * rate / 1000
}

func (s *Store) AddUsage(ctx context.Context, u Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Total == 0 {
		u.Total = u.Input + u.Output
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_usage (model, agent, input_tokens, output_tokens, total_tokens, cost, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Model, u.Agent, u.Input, u.Output, u.Total, EstimateCost(u.Model, u.Total), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Usage summarizes the ledger by model and agent, most expensive first.
func (s *Store) Usage(ctx context.Context) ([]UsageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT model, agent, COUNT(*), SUM(input_tokens), SUM(output_tokens), SUM(total_tokens), SUM(cost)
		FROM model_usage GROUP BY model, agent ORDER BY SUM(cost) DESC, model, agent`)
	if err != nil {
		return nil, fmt.Errorf("summarize usage: %w", err)
	}
	defer rows.Close()

	var out []UsageSummary
	for rows.Next() {
		var u UsageSummary
		if err := rows.Scan(&u.Model, &u.Agent, &u.Calls, &u.Input, &u.Output, &u.Total, &u.Cost); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		u.Cost = math.Round(u.Cost*1e6) / 1e6
		out = append(out, u)
	}
	return out, rows.Err()
}
