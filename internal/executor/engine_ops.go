package executor

import (
	"time"

	"keyspaced/internal/engine"
	"keyspaced/internal/engine/coordinator"
)

// SetAtom writes an atom, optionally with a TTL.
func (e *Engine) SetAtom(key string, val []byte, ttl *time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.InsertAtom(key, val)
	if ttl != nil {
		e.store.SetExpiration(key, *ttl)
	}
}

// Get returns an atom's value.
func (e *Engine) Get(key string) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Observe(key)
}

// TypeOf returns the live variant stored at key.
func (e *Engine) TypeOf(key string) engine.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.TypeOf(key)
}

// RPush appends to the back of a list and wakes any parked ListPop
// waiters, within the same critical section (spec §4.4's ordering rule).
func (e *Engine) RPush(key string, vals [][]byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.store.RPush(key, vals...)
	if err != nil {
		return 0, err
	}
	e.coord.NotifyListPush(key)
	return n, nil
}

// LPush prepends to the front of a list and wakes any parked ListPop
// waiters.
func (e *Engine) LPush(key string, vals [][]byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.store.LPush(key, vals...)
	if err != nil {
		return 0, err
	}
	e.coord.NotifyListPush(key)
	return n, nil
}

// LPop removes and returns up to n elements from the front of a list.
func (e *Engine) LPop(key string, n int) [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LPop(key, n)
}

// LLen returns a list's length.
func (e *Engine) LLen(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LLen(key)
}

// LRange returns the inclusive [start, stop] range of a list.
func (e *Engine) LRange(key string, start, stop int) [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LRange(key, start, stop)
}

// Del unconditionally removes keys, returning how many were present.
func (e *Engine) Del(keys []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Delete(keys...)
}

// Exists returns how many of keys are currently present.
func (e *Engine) Exists(keys []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Exists(keys...)
}

// TTLMillis returns milliseconds remaining before key's expiration.
func (e *Engine) TTLMillis(key string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.TTLMillis(key)
}

// XAdd appends a stream record and wakes any parked StreamRead waiters on
// key, within the same critical section.
func (e *Engine) XAdd(key, requestedID string, fields [][]byte) (engine.StreamID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.store.XAdd(key, requestedID, fields)
	if err != nil {
		return engine.StreamID{}, err
	}
	record, _ := e.store.XLast(key)
	e.coord.NotifyStreamAppend(key, record)
	return id, nil
}

// XRange returns the inclusive range of stream records between start and
// end ids (already resolved from "-"/"+"/explicit form by the caller).
func (e *Engine) XRange(key string, start, end engine.StreamID) []engine.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.XRange(key, start, end)
}

// XBounds returns the stream's first and last ids at key, used to resolve
// the "-", "+", and "$" id tokens.
func (e *Engine) XBounds(key string) (first, last engine.StreamID, hasFirst, hasLast bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, hf := e.store.XFirst(key)
	l, hl := e.store.XLast(key)
	return f.ID, l.ID, hf, hl
}

// TryPopOrPark attempts lpop(key, 1) under the lock; on failure it parks a
// ListPop waiter in the same critical section and returns it, per spec
// §4.4's BLPOP algorithm (steps 1-3 are one atomic unit).
func (e *Engine) TryPopOrPark(key string) (popped []byte, ok bool, waiter *coordinator.Waiter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	vals := e.store.LPop(key, 1)
	if len(vals) == 1 {
		return vals[0], true, nil
	}
	return nil, false, e.coord.ParkListPop(key, e.listNotifyBuf)
}

// RetryPopAfterWake cancels waiter and retries lpop(key, 1) under the
// lock, per spec §4.4 step 5.
func (e *Engine) RetryPopAfterWake(key string, waiter *coordinator.Waiter) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.coord.Cancel(key, waiter.ID)
	vals := e.store.LPop(key, 1)
	if len(vals) == 1 {
		return vals[0], true
	}
	return nil, false
}

// StreamQuery is one (key, resolved-start-id) pair of an XREAD request.
type StreamQuery struct {
	Key     string
	StartID engine.StreamID
}

// StreamResult is the non-empty result for one queried stream.
type StreamResult struct {
	Key     string
	Records []engine.Record
}

// TryReadOrPark attempts, under one critical section, to collect every
// stream with records after its resolved start id (resolved ids are
// passed in via queries; see ResolveStreamStart); if none have any and
// block is requested, it parks a StreamRead waiter on the FIRST query's
// key only (spec §9's single-key-subscription simplification) and returns
// it. Because this re-checks XReadAfter under the same lock it parks
// under, a write that lands between ResolveStreamStart and this call is
// still observed here rather than racing the park.
func (e *Engine) TryReadOrPark(queries []StreamQuery, block bool) ([]StreamResult, *coordinator.Waiter) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var results []StreamResult
	for _, q := range queries {
		records := e.store.XReadAfter(q.Key, q.StartID)
		if len(records) > 0 {
			results = append(results, StreamResult{Key: q.Key, Records: records})
		}
	}
	if len(results) > 0 || !block || len(queries) == 0 {
		return results, nil
	}
	first := queries[0]
	return nil, e.coord.ParkStreamRead(first.Key, first.StartID, e.streamNotifyBuf)
}

// RetryReadAfterWake cancels waiter and re-queries xread_after(key,
// startID) under the lock, per spec §4.4 step 6.
func (e *Engine) RetryReadAfterWake(key string, startID engine.StreamID, waiter *coordinator.Waiter) []engine.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.coord.Cancel(key, waiter.ID)
	return e.store.XReadAfter(key, startID)
}

// ResolveStreamStart resolves the "$" token (current last id at parking
// time) or parses an explicit id string, under the lock so that it is
// consistent with a concurrently-running TryReadOrPark.
func (e *Engine) ResolveStreamStart(key, idToken string) (engine.StreamID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idToken == "$" {
		last, ok := e.store.XLast(key)
		if !ok {
			return engine.ZeroStreamID(), nil
		}
		return last.ID, nil
	}
	return engine.ParseStreamID(idToken)
}
