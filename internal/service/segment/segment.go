// Package segment provides segment ID generation and lifecycle tracking
// for committed transcript segments.
package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator produces unique segment IDs. The counter is shared across
// sessions so IDs stay unique service-wide.
type Generator struct {
	counter uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next segment ID for a session, in the form
// "<sessionId>-seg-<n>".
func (g *Generator) Next(sessionID string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-seg-%d", sessionID, n)
}
