package intent

import (
	"fmt"
	"strings"

	domintent "github.com/kailas-cloud/segmatch/internal/domain/intent"
)

const promptTemplate = `You analyze advertising campaign briefs.
Extract the marketer's intent from the request below.
%s
Request: %q

Respond with a single JSON object and nothing else:
{"category": "<main product or interest category>",
 "demographic": "<age, gender, income or life stage, or empty>",
 "goal": "<campaign goal such as awareness or conversion, or empty>",
 "keywords": ["<3 to 8 lowercase search keywords>"],
 "target_audience": ["<short audience descriptions>"]}`

// buildPrompt renders the extraction prompt with up to maxTurns of the latest history.
func buildPrompt(query string, history []domintent.Turn, maxTurns int) string {
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	var conv strings.Builder
	if len(history) > 0 {
		conv.WriteString("\nEarlier in this conversation:\n")
		for _, t := range history {
			role := t.Role
			if role == "" {
				role = "user"
			}
			fmt.Fprintf(&conv, "- %s: %s\n", role, strings.TrimSpace(t.Content))
		}
		conv.WriteString("Treat the request as a refinement of the conversation above.\n")
	}
	return fmt.Sprintf(promptTemplate, conv.String(), query)
}
