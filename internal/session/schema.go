package session

import "github.com/lernpfad/backend/internal/llm"

// SessionSchema defines the JSON schema for practice-session generation.
var SessionSchema = &llm.Schema{
	Name:        "practice-session",
	Description: "A practice session with new tasks and optional theory cards",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Short topic label for the session (2-6 words)",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "One or two encouraging sentences introducing the session",
			},
			"theory": map[string]any{
				"type":        "array",
				"description": "Optional explanation cards for concepts the learner struggles with",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{
							"type": "string",
						},
						"content": map[string]any{
							"type":        "string",
							"description": "Short explanation (3-5 sentences)",
						},
					},
					"required":             []any{"title", "content"},
					"additionalProperties": false,
				},
			},
			"tasks": map[string]any{
				"type":        "array",
				"description": "3-5 new exercises, each matching its app's content shape",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"app_id": map[string]any{
							"type":        "integer",
							"description": "Id of the app this exercise belongs to",
						},
						"content": map[string]any{
							"type":        "object",
							"description": "The exercise payload in the app's target shape",
						},
					},
					"required":             []any{"app_id", "content"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"topic", "text", "theory", "tasks"},
		"additionalProperties": false,
	},
}
