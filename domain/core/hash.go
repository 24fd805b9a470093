package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// SeedHash is a stable 32-bit value hash. It is folded from sha256 so it does
// not depend on process, platform or map iteration order; equal inputs always
// give equal seeds.
type SeedHash int32

// Int64 widens the hash for seed arithmetic.
func (h SeedHash) Int64() int64 {
	return int64(h)
}

// ComputeSeedHash hashes an ordered list of fields. Floats are formatted with
// %v, which round-trips float64 exactly.
func ComputeSeedHash(fields ...interface{}) SeedHash {
	var data strings.Builder
	for i, f := range fields {
		if i > 0 {
			data.WriteByte('|')
		}
		data.WriteString(fmt.Sprintf("%T=%v", f, f))
	}
	sum := sha256.Sum256([]byte(data.String()))
	return SeedHash(int32(binary.BigEndian.Uint32(sum[:4])))
}

// DeriveSeed adds offsets (k, batch index, ...) to base+hash. Overflow wraps,
// which keeps derivation total and deterministic.
func DeriveSeed(base int64, h SeedHash, offsets ...int) int64 {
	seed := base + h.Int64()
	for _, o := range offsets {
		seed += int64(o)
	}
	return seed
}
