package detection

import (
	"math/rand"

	"outbreaksim/domain/sim"
)

// Outcome is the result of replaying one sample path.
type Outcome struct {
	Detected bool
	Day      int // first day with a positive test, 0 when not detected
}

// Replay walks days 1..T of path. On each day every infectious vertex gets
// one Bernoulli(fnr) "test failed" draw from rng, in ascending order, whether
// or not it is tested that day. A vertex that is infectious, not failed and
// scheduled that day is a detection; replay stops at the first one.
func Replay(path sim.SamplePath, schedule Schedule, fnr float64, rng *rand.Rand) Outcome {
	horizon := path.Horizon()
	if h := schedule.Horizon(); h < horizon {
		horizon = h
	}
	for t := 1; t <= horizon; t++ {
		infectious := path.Days[t]
		positive := make([]bool, len(infectious))
		for i := range infectious {
			positive[i] = rng.Float64() > fnr
		}
		for i, v := range infectious {
			if positive[i] && schedule.Tested(t, v) {
				return Outcome{Detected: true, Day: t}
			}
		}
	}
	return Outcome{}
}

// CountDetected replays every path of out and returns the number detected.
func CountDetected(out *sim.Output, schedule Schedule, fnr float64, rng *rand.Rand) int {
	detected := 0
	for _, path := range out.Paths {
		if Replay(path, schedule, fnr, rng).Detected {
			detected++
		}
	}
	return detected
}
