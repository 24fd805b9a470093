package sim

import (
	"sort"
	"time"
)

// SamplePath is one repetition's history. Days[t] is the ascending set of
// vertices infectious as of day t, for t = 0..T, source vertex included.
// Sets only grow from one day to the next.
type SamplePath struct {
	Days [][]int
}

// Horizon returns T, the last recorded day.
func (p SamplePath) Horizon() int {
	return len(p.Days) - 1
}

// InfectiousOn returns the infectious set of day t, or nil outside 0..T.
func (p SamplePath) InfectiousOn(t int) []int {
	if t < 0 || t >= len(p.Days) {
		return nil
	}
	return p.Days[t]
}

// Output holds all repetitions of one parameter set.
type Output struct {
	Paths    []SamplePath
	WallTime time.Duration
}

// SampleSize is the number of repetitions.
func (o *Output) SampleSize() int {
	if o == nil {
		return 0
	}
	return len(o.Paths)
}

// Runs is one simulation batch: outputs keyed by parameter set.
type Runs map[Parameters]*Output

// Parameters returns the keys ordered by their string form, so callers that
// log or consume streams per key behave the same on every run.
func (r Runs) Parameters() []Parameters {
	keys := make([]Parameters, 0, len(r))
	for p := range r {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}
