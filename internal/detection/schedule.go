// Package detection replays simulated outbreaks against a testing schedule
// with imperfect test sensitivity and estimates the probability that the
// outbreak is detected within the horizon.
package detection

import (
	"math/rand"
	"sort"
	"strings"

	"outbreaksim/domain/core"
)

// Order is the policy that decides who is tested on which day.
type Order string

const (
	// Circular tests the ascending vertex list in a rotating window.
	Circular Order = "circular"
	// Random shuffles the vertex list once, then tests it in a rotating window.
	Random Order = "random"
)

// ParseOrder accepts "circular" or "random", case-insensitively.
func ParseOrder(s string) (Order, error) {
	o := Order(strings.ToLower(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", core.NewUnsupportedPolicyError(s)
	}
	return o, nil
}

func (o Order) Valid() bool {
	return o == Circular || o == Random
}

func (o Order) String() string { return string(o) }

// Schedule maps day t (1..T) to the ascending set of vertices tested that
// day. Index 0 is unused.
type Schedule [][]int

// Horizon returns T.
func (s Schedule) Horizon() int {
	if len(s) == 0 {
		return 0
	}
	return len(s) - 1
}

// Tested reports whether v is tested on day t.
func (s Schedule) Tested(t, v int) bool {
	if t < 1 || t >= len(s) {
		return false
	}
	day := s[t]
	i := sort.SearchInts(day, v)
	return i < len(day) && day[i] == v
}

// BuildSchedule assigns k tests per day over the ordered vertex list: day t
// tests list positions k(t-1) .. kt-1, taken modulo the list length. With
// k*T > len(vertices) some vertices are retested before others are reached;
// with k*T < len(vertices) coverage is partial.
func BuildSchedule(k int, vertices []int, horizon int) (Schedule, error) {
	if k < 1 {
		return nil, core.NewValidationError("k", "tests per day must be positive")
	}
	if horizon < 1 {
		return nil, core.NewValidationError("horizon", "must be positive")
	}
	if len(vertices) == 0 {
		return nil, core.ErrEmptyNetwork
	}

	size := len(vertices)
	s := make(Schedule, horizon+1)
	for t := 1; t <= horizon; t++ {
		seen := make(map[int]bool, k)
		day := make([]int, 0, k)
		for j := k * (t - 1); j < k*t; j++ {
			v := vertices[j%size]
			if !seen[v] {
				seen[v] = true
				day = append(day, v)
			}
		}
		sort.Ints(day)
		s[t] = day
	}
	return s, nil
}

// BuildShuffledSchedule shuffles a copy of vertices once with rng, then
// applies BuildSchedule to the shuffled order.
func BuildShuffledSchedule(k int, vertices []int, horizon int, rng *rand.Rand) (Schedule, error) {
	shuffled := append([]int(nil), vertices...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return BuildSchedule(k, shuffled, horizon)
}
