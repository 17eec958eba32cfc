package xsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicWaitGroup(t *testing.T) {
	wg := NewDynamicWaitGroup()
	wg.Wait() // Zero count doesn't block.

	wg.Add(2)
	assert.Equal(t, 2, wg.Count())
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	wg.Done()
	wg.Add(1) // Increased while someone is waiting.
	wg.Done()
	select {
	case <-done:
		t.Fatal("Wait returned before the counter reached zero")
	case <-time.After(10 * time.Millisecond):
	}
	wg.Done()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait didn't return after the counter reached zero")
	}
	require.Panics(t, func() { wg.Done() })
}
