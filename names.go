package pgcontext

import (
	"strconv"
	"sync/atomic"
	"time"
)

// processNames is shared by every Config without its own generator.
var processNames = NewNameGenerator(time.Now().UnixMilli())

// NameGenerator produces database names that are unique for its lifetime.
// It is safe for concurrent use.
type NameGenerator struct {
	last atomic.Int64
}

// NewNameGenerator returns a generator whose first value is seed+1.
func NewNameGenerator(seed int64) *NameGenerator {
	g := new(NameGenerator)
	g.last.Store(seed)
	return g
}

// Next reserves the next counter value and returns "<base>_<counter in base 36>".
func (g *NameGenerator) Next(base string) string {
	return base + "_" + strconv.FormatInt(g.last.Add(1), 36)
}
