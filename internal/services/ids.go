package services

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// IDGenerator produces record ids of the form <prefix>_<epoch-ms>_<random9>.
type IDGenerator struct {
	Now  func() time.Time
	Rand func(n int) int
}

// DefaultIDGenerator uses the wall clock and math/rand/v2.
var DefaultIDGenerator = IDGenerator{Now: time.Now, Rand: rand.IntN}

// New returns a fresh id with the given prefix, e.g. "conv" or "msg".
func (g IDGenerator) New(prefix string) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = idAlphabet[g.Rand(len(idAlphabet))]
	}
	return fmt.Sprintf("%s_%d_%s", prefix, g.Now().UnixMilli(), suffix)
}
