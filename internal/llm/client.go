package llm

import (
	"context"
	"encoding/json"
)

// Options tune a single generation call. Zero value means plain text
// generation with provider defaults.
type Options struct {
	// System is an optional system instruction.
	System string
	// UseSearch enables search grounding on providers that support it.
	UseSearch bool
	// ThinkingBudget caps reasoning tokens on providers that support it.
	// Zero leaves thinking at the provider default.
	ThinkingBudget int32
}

type LLMClient interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// StructuredClient constrains output to a JSON schema. Schemas are expressed
// as Schema trees and translated per provider.
type StructuredClient interface {
	GenerateStructured(ctx context.Context, prompt string, schema *Schema, opts Options) (string, error)
}

// ImageClient returns generated image bytes, base64-encoded, plus the MIME
// type reported by the provider.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) (data string, mimeType string, err error)
}

type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Schema is a provider-neutral subset of JSON schema, wide enough for the
// extraction envelopes this system requests.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
)

// structuredPromptSuffix renders the schema as a prompt instruction for
// providers without a native response-schema parameter.
func structuredPromptSuffix(schema *Schema) string {
	suffix := "\n\nRespond with JSON only, no prose, no code fences."
	if schema == nil {
		return suffix
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return suffix
	}
	return suffix + " The response must match this JSON schema:\n" + string(data)
}
