package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedFlowGenerator_ReturnsSameToken(t *testing.T) {
	gen := NewFixedFlowGenerator("scenario-flow")

	assert.Equal(t, "scenario-flow", gen.Generate())
	assert.Equal(t, "scenario-flow", gen.Generate())
}

func TestFixedFlowGenerator_EmptyTokenDefault(t *testing.T) {
	assert.Equal(t, "test-flow-default", NewFixedFlowGenerator("").Generate())
}

func TestCountingFlowGenerator(t *testing.T) {
	gen := NewCountingFlowGenerator("call")

	assert.Equal(t, "call-0001", gen.Generate())
	assert.Equal(t, "call-0002", gen.Generate())
	assert.Equal(t, "flow-0001", NewCountingFlowGenerator("").Generate())
}

func TestCountingFlowGenerator_ThreadSafe(t *testing.T) {
	gen := NewCountingFlowGenerator("t")
	const goroutines = 10
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				tok := gen.Generate()
				mu.Lock()
				seen[tok] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine, "every token must be distinct")
}
