// Package docid generates document identifiers.
//
// An identifier is the 16 bytes of a UUID version 7 encoded as 32 lowercase
// hex characters. The leading 48 bits are a millisecond timestamp, so ids
// sort roughly by creation time; the remaining bits come from a monotonic
// counter and random data. No ordering is guaranteed across processes.
package docid

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Len is the fixed length of generated identifiers.
const Len = 32

// New returns a fresh identifier.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		id = uuid.New()
	}
	return hex.EncodeToString(id[:])
}

// Valid reports whether v can serve as a caller-supplied identifier.
func Valid(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}
