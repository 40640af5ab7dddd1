// Package llmtest provides a deterministic core.LLM for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"adsdash/agent-app/core"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Output core.LLMOutput
	Err    error
}

// Scripted replays responses in order and records every request it receives.
type Scripted struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []core.GenerateRequest
	Model     string
}

func New(responses ...Response) *Scripted {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &Scripted{responses: cloned, Model: "scripted"}
}

var _ core.LLM = (*Scripted)(nil)

func (m *Scripted) Generate(_ context.Context, req core.GenerateRequest) (core.LLMOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.History = append([]core.ChatContent(nil), req.History...)
	m.requests = append(m.requests, req)
	if m.index >= len(m.responses) {
		return core.LLMOutput{}, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return core.LLMOutput{}, current.Err
	}
	out := current.Output
	if out.Model == "" {
		out.Model = m.Model
	}
	return out, nil
}

func (m *Scripted) ModelName() string {
	return m.Model
}

// Requests returns a copy of every request seen so far.
func (m *Scripted) Requests() []core.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.GenerateRequest(nil), m.requests...)
}

// Calls reports how many turns were consumed.
func (m *Scripted) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Text is a final answer turn.
func Text(text string) Response {
	return Response{Output: core.LLMOutput{Text: text, Stats: core.Stats{InputTokenCount: 10, OutputTokenCount: 5, TotalTokenCount: 15}}}
}

// JSON is a final answer turn encoding v.
func JSON(v any) Response {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Text(string(b))
}

// ToolCalls is a turn requesting the given calls. Arguments are JSON encoded.
func ToolCalls(calls ...Call) Response {
	out := core.LLMOutput{Stats: core.Stats{InputTokenCount: 10, OutputTokenCount: 2, TotalTokenCount: 12}}
	for i, c := range calls {
		args := "{}"
		if c.Args != nil {
			b, err := json.Marshal(c.Args)
			if err != nil {
				panic(err)
			}
			args = string(b)
		}
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:        fmt.Sprintf("call_%d_%s", i, c.Name),
			ToolName:  c.Name,
			Arguments: args,
		})
	}
	return Response{Output: out}
}

type Call struct {
	Name string
	Args any
}

// Fail is a turn returning err.
func Fail(err error) Response {
	return Response{Err: err}
}
