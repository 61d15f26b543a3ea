package plan

import (
	"fmt"
	"strings"
)

// maxPromptCandidates bounds how many candidates are listed in the
// generation instruction. The pool itself may be larger; validation runs
// against the full pool.
const maxPromptCandidates = 50

const planSystemPrompt = `You are a learning coach building a multi-day practice schedule for a school learner. You only schedule exercises from the candidate list you are given, referencing them by id.`

func buildPlanUserMessage(candidates []candidate, days int) string {
	listed := candidates
	if len(listed) > maxPromptCandidates {
		listed = listed[:maxPromptCandidates]
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Build a %d-day plan from these candidates:\n", days)
	for _, c := range listed {
		fmt.Fprintf(&b, "- id %d [%s] %s (%d right / %d wrong)",
			c.ContentID, c.Priority, c.AppName, c.SuccessCount, c.FailureCount)
		if c.Preview != "" {
			fmt.Fprintf(&b, ": %s", c.Preview)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
Instructions:
1. Schedule 3-6 tasks per day over exactly %d days. Prefer weak candidates early, mix in review and unseen items later.
2. Group tasks from the same app on the same day where possible.
3. Only use ids from the candidate list. Never invent ids.
4. Give each day a short focus label and the plan an overall title and description, in German.
5. Respond with a single JSON object and nothing else.`, days)

	return b.String()
}
