package agents

import (
	"context"
	"sync"

	"adsdash/agent-app/core"
)

type ChatParams struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type ChatResult struct {
	Message     string         `json:"message" validate:"required"`
	ActionTaken string         `json:"action_taken,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Intent      string         `json:"intent" validate:"oneof=query_data analyze recommend generate_copy optimize chat" jsonschema:"enum=query_data,enum=analyze,enum=recommend,enum=generate_copy,enum=optimize,enum=chat"`
}

var Conversational = &Definition[ChatParams, ChatResult]{
	AgentName: "conversational",
	Summary:   "Answers free-form questions about the ad account in a multi-turn chat.",
	Tier:      Fast,
	System: `你是{{brand_name}}的 Meta 廣告數據助理，今天是 {{today}}。
先判斷使用者意圖（query_data、analyze、recommend、generate_copy、optimize、chat），
需要數據時呼叫工具查詢，回答要簡潔並附上後續建議。以繁體中文回答。`,
	Prompt: `{{message}}`,
	Tools:  []string{"query_campaign", "get_top_campaigns", "search_similar_ads", "get_overall_summary", "get_current_time"},
}

// MaxHistory is how many messages of a session are replayed to the model.
const MaxHistory = 20

// Conversation keeps chat history per session and replays it on every turn.
type Conversation struct {
	mu       sync.Mutex
	sessions map[string][]core.ChatContent
}

func NewConversation() *Conversation {
	return &Conversation{sessions: make(map[string][]core.ChatContent)}
}

// History returns a copy of the session's recent messages, oldest first.
func (c *Conversation) History(sessionID string) []core.ChatContent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.ChatContent(nil), c.sessions[sessionID]...)
}

func (c *Conversation) Reset(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
}

func (c *Conversation) append(sessionID string, msgs ...core.ChatContent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := append(c.sessions[sessionID], msgs...)
	if len(h) > MaxHistory {
		h = append([]core.ChatContent(nil), h[len(h)-MaxHistory:]...)
	}
	c.sessions[sessionID] = h
}

// Send runs one chat turn. History only grows when the turn succeeds.
func (c *Conversation) Send(ctx context.Context, llm core.LLM, env Env, sessionID, message string, opts ...core.AgentOption) (*ChatResult, core.RunInfo, error) {
	req := Request{SessionID: sessionID, History: c.History(sessionID)}
	out, info, _, err := Conversational.Invoke(ctx, llm, env, ChatParams{Message: message}, req, opts...)
	if err != nil {
		return nil, info, err
	}
	c.append(sessionID, core.NewContent(core.RoleUser, message), core.NewContent(core.RoleAssistant, out.Message))
	return out, info, nil
}
