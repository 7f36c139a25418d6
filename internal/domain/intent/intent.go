// Package intent holds the normalized interpretation of a campaign query.
package intent

import "strings"

// Intent is derived per query and discarded after scoring.
type Intent struct {
	Category       string   `json:"category"`
	Demographic    string   `json:"demographic,omitempty"`
	Goal           string   `json:"goal,omitempty"`
	Keywords       []string `json:"keywords"`
	TargetAudience []string `json:"target_audience"`
}

// Usable reports whether the intent carries enough signal to score against.
func (i Intent) Usable() bool {
	return strings.TrimSpace(i.Category) != "" && len(i.Keywords) > 0
}

// Fallback builds an intent straight from the query text.
// Keywords is non-empty for any query with a non-space character.
func Fallback(query string) Intent {
	return Intent{
		Category:       strings.TrimSpace(query),
		Keywords:       NormalizeKeywords(strings.Fields(query)),
		TargetAudience: []string{},
	}
}

// NormalizeKeywords lowercases, trims and deduplicates, keeping first-seen order.
func NormalizeKeywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, k := range raw {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Turn is one prior exchange in a refinement conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
