package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

var (
	_ LLMClient        = (*GeminiClient)(nil)
	_ StructuredClient = (*GeminiClient)(nil)
	_ EmbedderClient   = (*GeminiClient)(nil)
	_ ImageClient      = (*GeminiClient)(nil)
)

type GeminiClient struct {
	client     *genai.Client
	model      string
	embedModel string
	imageModel string
}

func NewGeminiClient(ctx context.Context, apiKey, model, embedModel, imageModel string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		model:      model,
		embedModel: embedModel,
		imageModel: imageModel,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	cfg := c.buildConfig(opts)

	resp, err := c.generateWithRetry(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no response candidates or content")
	}
	return text, nil
}

func (c *GeminiClient) GenerateStructured(ctx context.Context, prompt string, schema *Schema, opts Options) (string, error) {
	cfg := c.buildConfig(opts)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = toGenaiSchema(schema)

	// Search grounding and response schemas cannot be combined on the
	// Gemini API; structured stages run without grounding.
	cfg.Tools = nil

	resp, err := c.generateWithRetry(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no response candidates or content")
	}
	return text, nil
}

func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) (string, string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := c.generateWithRetry(ctx, c.imageModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", "", err
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return base64.StdEncoding.EncodeToString(part.InlineData.Data), part.InlineData.MIMEType, nil
			}
		}
	}
	return "", "", fmt.Errorf("no image data in response")
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	res, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}
	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values")
	}
	return res.Embeddings[0].Values, nil
}

func (c *GeminiClient) buildConfig(opts Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.System, genai.RoleUser)
	}
	if opts.UseSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if opts.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr[int32](opts.ThinkingBudget),
		}
	}
	return cfg
}

// generateWithRetry backs off on rate limits only. Everything else surfaces
// immediately; the pipeline has its own single repair pass for bad payloads.
func (c *GeminiClient) generateWithRetry(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("rate limited after retries: %w", lastErr)
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGenaiSchema(s.Items),
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeInteger:
		out.Type = genai.TypeInteger
	case TypeNumber:
		out.Type = genai.TypeNumber
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenaiSchema(v)
		}
	}
	return out
}
