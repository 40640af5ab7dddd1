// Package gpt implements core.LLM over the OpenAI chat completions API.
package gpt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"adsdash/agent-app/core"
)

const providerName = "openai"

type completionsAPI interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float64
}

type GPT struct {
	cfg         Config
	completions completionsAPI
}

func New(cfg Config) (*GPT, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &GPT{cfg: cfg, completions: &client.Chat.Completions}, nil
}

func (g *GPT) ModelName() string {
	return g.cfg.Model
}

func (g *GPT) Generate(ctx context.Context, req core.GenerateRequest) (core.LLMOutput, error) {
	params, err := g.buildParams(req)
	if err != nil {
		return core.LLMOutput{}, err
	}
	completion, err := g.completions.New(ctx, params)
	if err != nil {
		return core.LLMOutput{}, wrapError(err)
	}
	return convertCompletion(g.cfg.Model, completion), nil
}

func (g *GPT) buildParams(req core.GenerateRequest) (openai.ChatCompletionNewParams, error) {
	messages, err := convertMessages(req.SystemContext, req.History)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.cfg.Model),
		Messages: messages,
	}
	if g.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.cfg.MaxTokens))
	}
	if g.cfg.Temperature != nil {
		params.Temperature = openai.Float(*g.cfg.Temperature)
	}
	for _, tool := range req.Tools {
		schema, err := core.SchemaMap(tool.Parameters)
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		param := openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:       tool.Name,
				Parameters: shared.FunctionParameters(schema),
			},
		}
		if tool.Description != "" {
			param.Function.Description = openai.Opt(tool.Description)
		}
		params.Tools = append(params.Tools, param)
	}
	if req.Output != nil {
		schema, err := core.SchemaMap(req.Output.Schema)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		jsonSchema := openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   req.Output.Name,
			Schema: schema,
			Strict: openai.Bool(false),
		}
		if req.Output.Description != "" {
			jsonSchema.Description = openai.String(req.Output.Description)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: jsonSchema},
		}
	}
	return params, nil
}

func convertMessages(system string, history []core.ChatContent) ([]openai.ChatCompletionMessageParamUnion, error) {
	var result []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(system) != "" {
		result = append(result, openai.SystemMessage(system))
	}
	for _, msg := range history {
		switch msg.Role {
		case core.RoleUser:
			if len(msg.Images) == 0 {
				result = append(result, openai.UserMessage(msg.Content))
				continue
			}
			var parts []openai.ChatCompletionContentPartUnionParam
			for _, img := range msg.Images {
				url := "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
			}
			if msg.Content != "" {
				parts = append(parts, openai.TextContentPart(msg.Content))
			}
			result = append(result, openai.UserMessage(parts))
		case core.RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(msg.Content)}
			}
			for _, call := range msg.ToolCalls {
				args := call.Arguments
				if args == "" {
					args = "{}"
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.ToolName,
						Arguments: args,
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case core.RoleTool:
			if msg.ToolCallID == "" {
				return nil, fmt.Errorf("tool result for %s has no call id", msg.ToolName)
			}
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return result, nil
}

func convertCompletion(model string, completion *openai.ChatCompletion) core.LLMOutput {
	out := core.LLMOutput{Model: model}
	if completion == nil {
		return out
	}
	if completion.Model != "" {
		out.Model = completion.Model
	}
	out.Stats = core.Stats{
		InputTokenCount:  int32(completion.Usage.PromptTokens),
		OutputTokenCount: int32(completion.Usage.CompletionTokens),
		TotalTokenCount:  int32(completion.Usage.TotalTokens),
	}
	if len(completion.Choices) == 0 {
		return out
	}
	msg := completion.Choices[0].Message
	out.Text = msg.Content
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			ToolName:  tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &core.TransportError{Provider: providerName, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &core.TransportError{Provider: providerName, Err: err}
}
