package ports

import (
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations.
// Every call returns a private generator; streams are never shared, so
// identical seeds reproduce identical draws regardless of scheduling.
type RNGPort interface {
	// Stream creates a deterministic generator for a named purpose
	// ("external-infection", "reliability", ...).
	Stream(name string, seed int64) *rand.Rand
}
