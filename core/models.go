package core

import "encoding/json"

// AgentMeta describes an agent for listings.
type AgentMeta struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Endpoint    string           `json:"endpoint"`
	Complexity  string           `json:"complexity"`
	Tools       []ToolDescriptor `json:"tools"`
	Params      json.RawMessage  `json:"params_schema"`
	Output      json.RawMessage  `json:"output_schema"`
}

type AgentInput struct {
	Name      string          `json:"name" validate:"required"`
	SessionID string          `json:"session_id,omitempty"`
	Params    json.RawMessage `json:"params"`
	NoCache   bool            `json:"no_cache,omitempty"`
}

type AgentOutput struct {
	RunID    string   `json:"run_id"`
	Agent    string   `json:"agent"`
	Result   any      `json:"result"`
	Info     RunInfo  `json:"info"`
	Cached   bool     `json:"cached"`
	Warnings []string `json:"warnings,omitempty"`
}
