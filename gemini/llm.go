package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"adsdash/agent-app/core"
)

const providerName = "gemini"

type Gemini struct {
	APIKey      string
	Model       string
	Temperature *float32
	client      *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	client, err := NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &Gemini{
		APIKey: apiKey,
		Model:  modelName,
		client: client,
	}, nil
}

func (g *Gemini) ModelName() string {
	return g.Model
}

func (g *Gemini) Generate(ctx context.Context, req core.GenerateRequest) (core.LLMOutput, error) {
	contents, err := toContents(req.History)
	if err != nil {
		return core.LLMOutput{}, err
	}

	config := &genai.GenerateContentConfig{Temperature: g.Temperature}
	if req.SystemContext != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemContext}}}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			params, err := core.SchemaMap(tool.Parameters)
			if err != nil {
				return core.LLMOutput{}, fmt.Errorf("tool %s: %w", tool.Name, err)
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 tool.Name,
				Description:          tool.Description,
				ParametersJsonSchema: params,
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	} else if req.Output != nil {
		// Structured output is only requested once no tools are on offer.
		schema, err := core.SchemaMap(req.Output.Schema)
		if err != nil {
			return core.LLMOutput{}, err
		}
		config.ResponseMIMEType = "application/json"
		config.ResponseJsonSchema = schema
	}

	result, err := g.client.Models.GenerateContent(ctx, g.Model, contents, config)
	if err != nil {
		return core.LLMOutput{}, wrapError(err)
	}

	out := core.LLMOutput{Model: g.Model}
	if result.UsageMetadata != nil {
		out.Stats = core.Stats{
			InputTokenCount:  result.UsageMetadata.PromptTokenCount,
			OutputTokenCount: result.UsageMetadata.CandidatesTokenCount,
			TotalTokenCount:  result.UsageMetadata.TotalTokenCount,
		}
	}
	for _, fc := range result.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return core.LLMOutput{}, fmt.Errorf("encode function call %s: %w", fc.Name, err)
		}
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{ID: fc.ID, ToolName: fc.Name, Arguments: string(args)})
	}
	if len(out.ToolCalls) == 0 {
		out.Text = result.Text()
	}
	return out, nil
}

func toContents(history []core.ChatContent) ([]*genai.Content, error) {
	var contents []*genai.Content
	for _, content := range history {
		switch content.Role {
		case core.RoleUser:
			parts := []*genai.Part{}
			for _, img := range content.Images {
				parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
			}
			if content.Content != "" {
				parts = append(parts, genai.NewPartFromText(content.Content))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		case core.RoleAssistant:
			var parts []*genai.Part
			if content.Content != "" {
				parts = append(parts, genai.NewPartFromText(content.Content))
			}
			for _, call := range content.ToolCalls {
				var args map[string]any
				if call.Arguments != "" {
					if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
						return nil, fmt.Errorf("decode arguments of %s: %w", call.ToolName, err)
					}
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.ToolName, Args: args}})
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case core.RoleTool:
			response := map[string]any{}
			if err := json.Unmarshal([]byte(content.Content), &response); err != nil {
				// Non-object results (lists, scalars) are wrapped.
				var raw any
				if json.Unmarshal([]byte(content.Content), &raw) == nil {
					response = map[string]any{"output": raw}
				} else {
					response = map[string]any{"output": content.Content}
				}
			}
			part := genai.NewPartFromFunctionResponse(content.ToolName, response)
			part.FunctionResponse.ID = content.ToolCallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	return contents, nil
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &core.TransportError{Provider: providerName, StatusCode: apiErr.Code, Err: err}
	}
	return &core.TransportError{Provider: providerName, Err: err}
}
