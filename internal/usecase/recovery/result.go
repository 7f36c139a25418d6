// Package recovery extracts best-effort structure from unreliable generator output.
package recovery

import "encoding/json"

// Kind tags the shape of a parse result.
type Kind int

// Result kinds.
const (
	// KindEmpty means the input carried no text at all.
	KindEmpty Kind = iota
	// KindStructured means Value holds a decoded JSON object or array.
	KindStructured
	// KindUnstructured means no structure was recoverable; Text holds the narrative.
	KindUnstructured
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindUnstructured:
		return "unstructured"
	default:
		return "empty"
	}
}

// Stage names the strategy that produced a result.
type Stage string

// Parser stages in order of preference.
const (
	StageFenced     Stage = "fenced"
	StageSpan       Stage = "span"
	StageCleanup    Stage = "cleanup"
	StageAggressive Stage = "aggressive"
	StageSalvage    Stage = "salvage"
	StageNone       Stage = "none"
)

// Result is a tagged union: branch on Kind before touching Value or Text.
type Result struct {
	Kind  Kind
	Value any
	Text  string
	Stage Stage
}

// Structured reports whether r carries a decoded value.
func (r Result) Structured() bool { return r.Kind == KindStructured }

// Object returns the value as a JSON object, if it is one.
func (r Result) Object() (map[string]any, bool) {
	if r.Kind != KindStructured {
		return nil, false
	}
	m, ok := r.Value.(map[string]any)
	return m, ok
}

// Array returns the value as a JSON array, if it is one.
func (r Result) Array() ([]any, bool) {
	if r.Kind != KindStructured {
		return nil, false
	}
	a, ok := r.Value.([]any)
	return a, ok
}

// Decode converts a structured result into T. It reports false for any other kind
// or when the value does not fit T.
func Decode[T any](r Result) (T, bool) {
	var out T
	if r.Kind != KindStructured {
		return out, false
	}
	data, err := json.Marshal(r.Value)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}
