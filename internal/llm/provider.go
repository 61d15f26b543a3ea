// Package llm abstracts the external text generator behind a single
// Provider interface with interchangeable backends (Anthropic, OpenAI,
// OpenRouter, Gemini, mock).
package llm

import (
	"context"
	"encoding/json"
)

// Provider is the contract the personalization services program against:
// a system instruction and a user instruction go in, text comes back.
// The caller treats the result as possibly-JSON, possibly fenced in
// markdown code markers.
type Provider interface {
	// Generate sends the prompt to the model and returns its output.
	// When req.Schema is set, the provider asks for structured output and
	// validates the result against the schema before returning it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes one generation call.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// User is the task-specific instruction, typically a rendering of the
	// learner's performance data plus the requested output format.
	User string

	// Schema, when set, selects the provider's native structured-output
	// mechanism and is enforced on the response.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature controls randomness (0.0 - 1.0, default 0.0).
	Temperature float64
}

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies this schema (tool name for Anthropic, schema name
	// for OpenAI). Kebab-case, e.g. "practice-session".
	Name string

	// Description tells the model what this schema represents.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	// Content is the generated output. With a Schema it is the validated
	// JSON object; without one it is the raw text.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
