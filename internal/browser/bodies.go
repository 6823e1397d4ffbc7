package browser

import (
	"sync"
	"time"
)

// bodyGate tracks the response body reads of one page.
//
// Once drain starts, no new read is admitted, so every admitted read is
// counted before drain waits on it. After drain returns, deliveries are
// refused, so no handler runs once the page is closed.
type bodyGate struct {
	mu      sync.Mutex
	closing bool
	pending sync.WaitGroup

	// deliverMu serializes handler calls with the end of drain.
	deliverMu sync.Mutex
	detached  bool
}

// start admits a new body read. It returns false once drain has started.
// Every admitted read must call done.
func (g *bodyGate) start() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	g.pending.Add(1)
	return true
}

// done marks an admitted read as finished.
func (g *bodyGate) done() {
	g.pending.Done()
}

// deliver runs fn unless drain has returned. It reports whether fn ran.
func (g *bodyGate) deliver(fn func()) bool {
	g.deliverMu.Lock()
	defer g.deliverMu.Unlock()
	if g.detached {
		return false
	}
	fn()
	return true
}

// drain stops admitting reads and waits up to grace for admitted ones.
// It reports whether all of them finished in time; reads finishing later
// are not delivered.
func (g *bodyGate) drain(grace time.Duration) bool {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		g.pending.Wait()
		close(finished)
	}()

	ok := true
	select {
	case <-finished:
	case <-time.After(grace):
		ok = false
	}

	g.deliverMu.Lock()
	g.detached = true
	g.deliverMu.Unlock()
	return ok
}
