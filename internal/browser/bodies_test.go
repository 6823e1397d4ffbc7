package browser

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestBodyGate tests admission and delivery of response body reads
// around page close.
func TestBodyGate(t *testing.T) {
	t.Parallel()

	t.Run("drain waits for admitted reads", func(t *testing.T) {
		t.Parallel()

		var g bodyGate
		if !g.start() {
			t.Fatal("expected read to be admitted")
		}

		var delivered atomic.Bool
		go func() {
			defer g.done()
			time.Sleep(20 * time.Millisecond)
			g.deliver(func() { delivered.Store(true) })
		}()

		if !g.drain(time.Second) {
			t.Fatal("expected all reads to finish")
		}
		if !delivered.Load() {
			t.Error("expected the admitted body to be delivered before drain returned")
		}
	})

	t.Run("no reads are admitted once drain starts", func(t *testing.T) {
		t.Parallel()

		var g bodyGate
		g.drain(time.Second)
		if g.start() {
			t.Error("expected read after close to be refused")
		}
	})

	t.Run("late deliveries are dropped", func(t *testing.T) {
		t.Parallel()

		var g bodyGate
		if !g.start() {
			t.Fatal("expected read to be admitted")
		}
		if g.drain(10 * time.Millisecond) {
			t.Fatal("expected drain to time out")
		}

		called := false
		if g.deliver(func() { called = true }) {
			t.Error("expected delivery after drain to be refused")
		}
		if called {
			t.Error("handler ran after drain returned")
		}
		g.done()
	})

	t.Run("concurrent reads and drain", func(t *testing.T) {
		t.Parallel()

		var g bodyGate
		var wg sync.WaitGroup
		var delivered, refused atomic.Int64

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !g.start() {
					refused.Add(1)
					return
				}
				defer g.done()
				g.deliver(func() { delivered.Add(1) })
			}()
		}

		if !g.drain(time.Second) {
			t.Fatal("expected all admitted reads to finish")
		}
		wg.Wait()
		if delivered.Load()+refused.Load() != 50 {
			t.Errorf("expected every read to be delivered or refused, got %d and %d", delivered.Load(), refused.Load())
		}
	})
}
