package testutil

import (
	"fmt"
	"sync"
)

// FixedFlowGenerator returns the same flow token every time, so every call
// of a scenario lands in one flow and golden traces stay byte-identical.
//
// Satisfies engine.FlowTokenGenerator.
type FixedFlowGenerator struct {
	token string
}

// NewFixedFlowGenerator creates a generator for token.
// An empty token becomes "test-flow-default".
func NewFixedFlowGenerator(token string) *FixedFlowGenerator {
	if token == "" {
		token = "test-flow-default"
	}
	return &FixedFlowGenerator{token: token}
}

// Generate returns the fixed flow token.
func (g *FixedFlowGenerator) Generate() string {
	return g.token
}

// CountingFlowGenerator hands out "<prefix>-0001", "<prefix>-0002", ...
// Use it when each call should open its own flow.
type CountingFlowGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCountingFlowGenerator creates a counter for prefix ("flow" if empty).
func NewCountingFlowGenerator(prefix string) *CountingFlowGenerator {
	if prefix == "" {
		prefix = "flow"
	}
	return &CountingFlowGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *CountingFlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
