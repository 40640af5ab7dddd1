package core

import (
	"context"
	"encoding/json"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Image struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type LLMInput struct {
	SessionKey string
	Text       string
	Images     []Image
	Labels     map[string]string
	// History is prepended to the conversation, oldest first.
	History []ChatContent
}

type LLMOutput struct {
	Text      string
	ToolCalls []ToolCall
	Model     string
	Stats     Stats
}

type Stats struct {
	InputTokenCount  int32 `json:"input_token_count,omitempty"`
	OutputTokenCount int32 `json:"output_token_count,omitempty"`
	TotalTokenCount  int32 `json:"total_token_count,omitempty"`
}

func (s *Stats) Add(other Stats) {
	s.InputTokenCount += other.InputTokenCount
	s.OutputTokenCount += other.OutputTokenCount
	s.TotalTokenCount += other.TotalTokenCount
}

type ChatContent struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Images     []Image    `json:"images,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

func NewContent(role string, content string) ChatContent {
	return ChatContent{
		Role:    role,
		Content: content,
	}
}

func NewToolContent(call ToolCall, output string) ChatContent {
	return ChatContent{
		Role:       RoleTool,
		Content:    output,
		ToolCallID: call.ID,
		ToolName:   call.ToolName,
	}
}

// OutputFormat asks the provider for a JSON response matching Schema.
type OutputFormat struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

type GenerateRequest struct {
	SystemContext string
	History       []ChatContent
	Tools         []ToolDescriptor
	Output        *OutputFormat
}

type LLM interface {
	Generate(ctx context.Context, req GenerateRequest) (LLMOutput, error)
}

// ModelNamer is implemented by providers that can report the model they call.
type ModelNamer interface {
	ModelName() string
}
