package plan

import "github.com/lernpfad/backend/internal/llm"

// PlanSchema defines the JSON schema for learning-plan generation.
var PlanSchema = &llm.Schema{
	Name:        "learning-plan",
	Description: "A multi-day learning plan scheduling existing exercises",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short motivating plan title (3-8 words)",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "One or two sentences describing the plan's goal",
			},
			"days": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"day": map[string]any{
							"type":        "integer",
							"description": "Day number, starting at 1",
						},
						"focus": map[string]any{
							"type":        "string",
							"description": "Short label for the day's focus",
						},
						"task_ids": map[string]any{
							"type":        "array",
							"description": "3-6 candidate ids scheduled for this day",
							"items": map[string]any{
								"type": "integer",
							},
						},
					},
					"required":             []any{"day", "focus", "task_ids"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"title", "description", "days"},
		"additionalProperties": false,
	},
}
