package workflow

import (
	"sync"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the delivery
// semantics ProcessReconcileJob builds inside its transaction:
// - at-least-once delivery is safe via the durable idempotency row
// - the per-order advisory lock prevents racey interleavings between handlers
//
// Full DB+PubSub integration tests should be added in an environment that can run MySQL + the Pub/Sub emulator.

type fakeJobProcessor struct {
	muByOrder map[string]*sync.Mutex
	mu        sync.Mutex
	seen      map[string]bool
	calls     int
}

func newFakeJobProcessor() *fakeJobProcessor {
	return &fakeJobProcessor{
		muByOrder: map[string]*sync.Mutex{},
		seen:      map[string]bool{},
	}
}

func (p *fakeJobProcessor) process(orderCode, handlerName, messageID string, fn func()) {
	// Serialize per order (AcquireOrderReconcileLock).
	p.mu.Lock()
	om := p.muByOrder[orderCode]
	if om == nil {
		om = &sync.Mutex{}
		p.muByOrder[orderCode] = om
	}
	p.mu.Unlock()

	om.Lock()
	defer om.Unlock()

	// Deduplicate (models.IdempotencyKey).
	key := orderCode + "|" + handlerName + "|" + messageID
	p.mu.Lock()
	if p.seen[key] {
		p.mu.Unlock()
		return
	}
	p.seen[key] = true
	p.mu.Unlock()

	fn()

	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
}

func TestDuplicateDelivery_IsProcessedOnce(t *testing.T) {
	p := newFakeJobProcessor()

	const (
		order     = "SO202409001"
		handler   = "ReconcilePush"
		messageID = "123"
	)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.process(order, handler, messageID, func() {})
		}()
	}
	wg.Wait()

	if p.calls != 1 {
		t.Fatalf("expected exactly 1 processing call, got %d", p.calls)
	}
}

func TestReconcileDelivery_DeterministicUnderConcurrency(t *testing.T) {
	for run := 0; run < 100; run++ {
		p := newFakeJobProcessor()
		var wg sync.WaitGroup

		// same scenario, repeated concurrently
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p.process("SO202409001", "ReconcilePush", "1", func() {})
				p.process("SO202409001", "ReconcilePull", "2", func() {})
				p.process("SO202409001", "ReconcilePush", "1", func() {}) // duplicate
			}(i)
		}
		wg.Wait()

		if p.calls != 2 {
			t.Fatalf("run=%d expected 2 unique calls (push#1, pull#2), got %d", run, p.calls)
		}
	}
}
