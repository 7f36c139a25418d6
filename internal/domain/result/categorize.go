package result

// Windows sets the size of each tier, taken in order from the top of the ranking.
type Windows struct {
	BestFit   int `yaml:"best_fit"`
	HighValue int `yaml:"high_value"`
	Related   int `yaml:"related"`
}

// DefaultWindows returns the 8/5/5 tiering.
func DefaultWindows() Windows {
	return Windows{BestFit: 8, HighValue: 5, Related: 5}
}

// Total returns the number of ranked positions covered by all tiers.
func (w Windows) Total() int { return w.BestFit + w.HighValue + w.Related }

// Categorize slices ranked into three contiguous, disjoint tiers by position.
// Tiers are shorter than their window when the ranking runs out.
func Categorize[T any](ranked []T, w Windows) (bestFit, highValue, related []T) {
	cut := func(from, size int) []T {
		if size <= 0 || from >= len(ranked) {
			return []T{}
		}
		to := min(from+size, len(ranked))
		out := make([]T, to-from)
		copy(out, ranked[from:to])
		return out
	}
	first := max(w.BestFit, 0)
	second := first + max(w.HighValue, 0)
	return cut(0, w.BestFit), cut(first, w.HighValue), cut(second, w.Related)
}
