package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Snippet is one knowledge entry with its optional embedding.
type Snippet struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// PutSnippets upserts snippets by id in one transaction.
func (s *Store) PutSnippets(ctx context.Context, snippets []Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, sn := range snippets {
		var embedding string
		if len(sn.Embedding) > 0 {
			b, err := json.Marshal(sn.Embedding)
			if err != nil {
				return fmt.Errorf("encode embedding %s: %w", sn.ID, err)
			}
			embedding = string(b)
		}
		metaJSON, _ := json.Marshal(sn.Metadata)
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO knowledge (id, content, embedding, metadata, created_at) VALUES (?, ?, ?, ?, ?)",
			sn.ID, sn.Content, embedding, string(metaJSON), now,
		); err != nil {
			return fmt.Errorf("store snippet %s: %w", sn.ID, err)
		}
	}
	return tx.Commit()
}

// Snippets returns every knowledge entry, oldest first.
func (s *Store) Snippets(ctx context.Context) ([]Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, content, embedding, metadata, created_at FROM knowledge ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()

	var out []Snippet
	for rows.Next() {
		var (
			sn                  Snippet
			embedding, metaJSON string
			createdMs           int64
		)
		if err := rows.Scan(&sn.ID, &sn.Content, &embedding, &metaJSON, &createdMs); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		if embedding != "" {
			if err := json.Unmarshal([]byte(embedding), &sn.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding %s: %w", sn.ID, err)
			}
		}
		if metaJSON != "" {
			json.Unmarshal([]byte(metaJSON), &sn.Metadata)
		}
		sn.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, sn)
	}
	return out, rows.Err()
}

// ClearKnowledge removes every snippet and reports how many were removed.
func (s *Store) ClearKnowledge(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM knowledge")
	if err != nil {
		return 0, fmt.Errorf("clear knowledge: %w", err)
	}
	return res.RowsAffected()
}
