package executor

import (
	"sync"

	"keyspaced/internal/engine"
	"keyspaced/internal/engine/coordinator"
)

// Engine is the single shared mutex protecting the keyspace store and the
// blocking coordinator, per spec §5: every operation below holds the lock
// for its whole non-blocking attempt, including any notify_* call, and
// never holds it across a channel receive or timer wait.
type Engine struct {
	mu    sync.Mutex
	store *engine.Store
	coord *coordinator.Coordinator

	listNotifyBuf   int
	streamNotifyBuf int
}

// NewEngine returns an empty engine. listBuf/streamBuf size the delivery
// channels parked waiters of each kind receive wakes on (spec §9).
func NewEngine(listBuf, streamBuf int) *Engine {
	return &Engine{
		store:           engine.NewStore(),
		coord:           coordinator.New(),
		listNotifyBuf:   listBuf,
		streamNotifyBuf: streamBuf,
	}
}

// KeyCount returns the approximate live key count, for metrics.
func (e *Engine) KeyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.KeyCount()
}

// WaiterCounts returns the parked-waiter counts by kind, for metrics.
func (e *Engine) WaiterCounts() (listPop, streamRead int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord.WaiterCounts()
}
