package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Vision describes images with a multimodal model.
type Vision struct {
	Model  string
	client *genai.Client
}

func NewVision(client *genai.Client, model string) *Vision {
	return &Vision{Model: model, client: client}
}

// Describe sends the image and prompt in one user turn and returns the model's text.
func (v *Vision) Describe(ctx context.Context, data []byte, mimeType string, prompt string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("image is empty")
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)}

	result, err := v.client.Models.GenerateContent(ctx, v.Model, contents, nil)
	if err != nil {
		return "", wrapError(err)
	}
	return result.Text(), nil
}

// ImageGenerator renders prompts into images.
type ImageGenerator struct {
	Model  string
	client *genai.Client
}

func NewImageGenerator(client *genai.Client, model string) *ImageGenerator {
	return &ImageGenerator{Model: model, client: client}
}

// Generate returns the first inline image the model produced.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) ([]byte, string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, "", wrapError(err)
	}
	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType, nil
			}
		}
	}
	return nil, "", fmt.Errorf("model %s returned no image", g.Model)
}

// Embedder produces text embeddings for similarity search.
type Embedder struct {
	Model  string
	client *genai.Client
}

func NewEmbedder(client *genai.Client, model string) *Embedder {
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &Embedder{Model: model, client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := e.client.Models.EmbedContent(ctx, e.Model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", wrapError(err))
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}
	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}
