package session

import (
	"fmt"
	"strings"

	"github.com/lernpfad/backend/internal/progress"
	"github.com/lernpfad/backend/internal/store"
)

const sessionSystemPrompt = `You are a supportive tutor creating personalized practice exercises for a school learner. You generate exercises in German for small quiz apps, each with a fixed machine-readable content shape.`

func buildSessionUserMessage(apps []store.App, summary progress.Summary, variant string) string {
	var b strings.Builder

	b.WriteString("Spelling rule: ")
	if variant == store.SpellingSwiss {
		b.WriteString("use Swiss Standard German spelling, always write 'ss' instead of 'ß'.\n")
	} else {
		b.WriteString("use standard German spelling.\n")
	}

	b.WriteString("\nAvailable apps and their content shapes:\n")
	for _, app := range apps {
		fmt.Fprintf(&b, "- app_id %d: %s", app.ID, app.Name)
		if app.Description != "" {
			fmt.Fprintf(&b, " (%s)", app.Description)
		}
		fmt.Fprintf(&b, "\n  shape: %s\n", app.TaskSchema)
	}

	b.WriteString("\nPerformance summary:\n")
	b.WriteString(progress.FormatPerformance(summary))

	if len(summary.WeakAreas) > 0 {
		b.WriteString("\nWeakest items (revisit these concepts):\n")
		for _, w := range summary.WeakAreas {
			fmt.Fprintf(&b, "- [%s] %d right / %d wrong", w.AppName, w.SuccessCount, w.FailureCount)
			if w.Preview != "" {
				fmt.Fprintf(&b, ": %s", w.Preview)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`
Instructions:
Create a practice session targeting the weakest items above:
1. Generate 3-5 NEW exercises. Do not repeat the listed items verbatim; vary numbers, words and phrasing while practicing the same concepts.
2. Each exercise's content must exactly match its app's shape. Only use app_ids from the list above.
3. Add a theory card for each concept the learner keeps getting wrong. Keep cards short and age-appropriate. An empty theory list is fine.
4. Write all learner-facing text in German.
5. Respond with a single JSON object and nothing else.`)

	return b.String()
}
