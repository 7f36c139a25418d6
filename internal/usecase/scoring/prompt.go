package scoring

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/segmatch/internal/domain/intent"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
)

const maxDescriptionChars = 280

const promptHeader = `You rate how relevant advertising audience segments are to a campaign.

Campaign
- category: %s
- demographic: %s
- goal: %s
- keywords: %s
- target audience: %s

Segments (id | name | path | description):
`

const promptFooter = `
Score every segment from 0 (irrelevant) to 100 (perfect fit) with a one-sentence reason.
Use only the ids listed above.
Respond with JSON only:
{"scores": [{"id": "<segment id>", "score": <0-100>, "reason": "<why>"}]}`

func buildPrompt(in intent.Intent, batch []segment.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptHeader,
		orDash(in.Category), orDash(in.Demographic), orDash(in.Goal),
		orDash(strings.Join(in.Keywords, ", ")), orDash(strings.Join(in.TargetAudience, "; ")),
	)
	for i := range batch {
		s := &batch[i]
		fmt.Fprintf(&b, "%s | %s | %s | %s\n", s.ID, s.Name, s.Path(), truncate(s.Description, maxDescriptionChars))
	}
	b.WriteString(promptFooter)
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// truncate cuts s to n runes and flattens line breaks so one segment stays on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
