// Package rng provides the production RNGPort.
package rng

import (
	"math/rand"
)

// Seeded hands out math/rand generators seeded exactly with the requested
// seed. The stream name is informational.
type Seeded struct{}

// NewSeeded creates the seeded stream adapter.
func NewSeeded() *Seeded {
	return &Seeded{}
}

// Stream returns a fresh generator for seed.
func (Seeded) Stream(name string, seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
