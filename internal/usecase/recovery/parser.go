package recovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Schema names the fields worth salvaging when the whole payload is unparseable.
type Schema struct {
	// ArrayFields are bracket-matched independently, e.g. "scores".
	ArrayFields []string
	// StringFields are extracted by pattern and unescaped, e.g. "category".
	StringFields []string
}

// Parser runs the recovery strategies in order; the first success wins.
type Parser struct {
	schema      Schema
	stringRes   map[string]*regexp.Regexp
	stageCounts *prometheus.CounterVec
}

// New creates a parser for the given salvage schema.
// stageCounts is an optional counter vec with label "stage".
func New(schema Schema, stageCounts *prometheus.CounterVec) *Parser {
	res := make(map[string]*regexp.Regexp, len(schema.StringFields))
	for _, f := range schema.StringFields {
		res[f] = regexp.MustCompile(`"` + regexp.QuoteMeta(f) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	}
	return &Parser{schema: schema, stringRes: res, stageCounts: stageCounts}
}

// Parse never panics. Empty input yields KindEmpty; input with no recoverable
// structure yields KindUnstructured carrying the trimmed text.
func (p *Parser) Parse(raw string) (res Result) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Kind: KindEmpty, Stage: StageNone}
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{Kind: KindUnstructured, Text: text, Stage: StageNone}
		}
		p.count(res.Stage)
	}()

	if body, ok := fencedBlock(text); ok {
		if v, ok := decode(body); ok {
			return structured(v, StageFenced)
		}
	}

	candidates := p.candidates(text)
	for _, c := range candidates {
		if v, ok := decode(c); ok {
			return structured(v, StageSpan)
		}
	}
	for _, c := range candidates {
		if v, ok := decode(cleanup(c)); ok {
			return structured(v, StageCleanup)
		}
	}
	for _, c := range candidates {
		if v, ok := decode(aggressive(c)); ok {
			return structured(v, StageAggressive)
		}
	}
	if v, ok := p.salvage(text, candidates); ok {
		return structured(v, StageSalvage)
	}
	return Result{Kind: KindUnstructured, Text: text, Stage: StageNone}
}

// candidates lists the texts worth parsing: the fence body first, then spans.
func (p *Parser) candidates(text string) []string {
	var out []string
	if body, ok := fencedBlock(text); ok {
		out = append(out, body)
		// Double-encoded payloads start with a quote, not a bracket.
		if strings.HasPrefix(body, `"`) {
			return out
		}
	}
	if strings.HasPrefix(text, `"`) {
		out = append(out, text)
	}
	return append(out, spans(text)...)
}

// salvage assembles a synthetic object from independently recovered fields.
// A payload that is itself a broken array is rescued element by element.
func (p *Parser) salvage(text string, candidates []string) (any, bool) {
	obj := make(map[string]any)
	for _, f := range p.schema.ArrayFields {
		if items, ok := salvageArrayField(text, f); ok {
			obj[f] = items
		}
	}
	for _, f := range p.schema.StringFields {
		m := p.stringRes[f].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var s string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &s); err != nil {
			s = m[1]
		}
		obj[f] = s
	}
	if len(obj) > 0 {
		return obj, true
	}

	for _, c := range candidates {
		if strings.HasPrefix(c, "[") {
			if items := decodeElements(c[1:]); len(items) > 0 {
				return items, true
			}
		}
	}
	return nil, false
}

// salvageArrayField bracket-matches the value of "field": [ ... ] on its own.
func salvageArrayField(text, field string) ([]any, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*\[`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}
	open := loc[1] - 1
	end := matchBracket(text, open)
	if end >= 0 {
		body := text[open : end+1]
		for _, attempt := range []string{body, cleanup(body), aggressive(body)} {
			if v, ok := decode(attempt); ok {
				if arr, ok := v.([]any); ok {
					return arr, true
				}
			}
		}
		items := decodeElements(text[open+1 : end])
		return items, len(items) > 0
	}
	items := decodeElements(text[open+1:])
	return items, len(items) > 0
}

// decodeElements parses each top-level object independently, dropping broken ones.
func decodeElements(s string) []any {
	var out []any
	for _, obj := range objectsIn(s) {
		if v, ok := decode(obj); ok {
			out = append(out, v)
			continue
		}
		if v, ok := decode(cleanup(obj)); ok {
			out = append(out, v)
		}
	}
	return out
}

// decode accepts only JSON objects and arrays.
func decode(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

func structured(v any, stage Stage) Result {
	return Result{Kind: KindStructured, Value: v, Stage: stage}
}

func (p *Parser) count(stage Stage) {
	if p.stageCounts != nil {
		p.stageCounts.WithLabelValues(string(stage)).Inc()
	}
}
