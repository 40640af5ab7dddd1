package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{4}-\d{4}-\d{4}\b`),
	regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`),
}

// Mask replaces card numbers and e-mail addresses with ***.
func Mask(text string) string {
	for _, p := range sensitivePatterns {
		text = p.ReplaceAllString(text, "***")
	}
	return text
}

// Run is one recorded agent invocation.
type Run struct {
	ID         string          `json:"id"`
	Agent      string          `json:"agent"`
	SessionID  string          `json:"session_id,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Model      string          `json:"model,omitempty"`
	Turns      int             `json:"turns"`
	Retries    int             `json:"retries"`
	ToolCalls  int             `json:"tool_calls"`
	TotalToken int             `json:"total_tokens"`
	Duration   time.Duration   `json:"duration"`
	Cached     bool            `json:"cached"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RecordRun stores a run. Params and error text are masked before writing.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO agent_runs
			(id, agent, session_id, params, result, error, error_kind, model, turns, retries,
			 tool_calls, total_tokens, duration_ms, cached, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Agent, run.SessionID, Mask(string(run.Params)), string(run.Result),
		Mask(run.Error), run.ErrorKind, run.Model, run.Turns, run.Retries,
		run.ToolCalls, run.TotalToken, run.Duration.Milliseconds(), run.Cached, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, agent, session_id, params, result, error, error_kind, model, turns, retries,
	tool_calls, total_tokens, duration_ms, cached, created_at`

// Runs lists the most recent runs, newest first. An empty agent lists all.
func (s *Store) Runs(ctx context.Context, agent string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	query := "SELECT " + runColumns + " FROM agent_runs"
	var args []any
	if agent != "" {
		query += " WHERE agent = ?"
		args = append(args, agent)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns one run by id.
func (s *Store) Run(ctx context.Context, id string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM agent_runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                   Run
		params, result        string
		durationMs, createdMs int64
	)
	err := row.Scan(&run.ID, &run.Agent, &run.SessionID, &params, &result, &run.Error, &run.ErrorKind, &run.Model,
		&run.Turns, &run.Retries, &run.ToolCalls, &run.TotalToken, &durationMs, &run.Cached, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("scan run: %w", err)
	}
	if params != "" {
		run.Params = json.RawMessage(params)
	}
	if result != "" {
		run.Result = json.RawMessage(result)
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.CreatedAt = time.UnixMilli(createdMs)
	return run, nil
}
