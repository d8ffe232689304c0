// Package engine implements the typed keyspace (C1) and the stream log
// (C2) of spec.md §4.1/§4.2. Nothing in this package is safe for
// concurrent access by itself — internal/executor.Engine is the sole owner
// of the lock that makes these operations atomic (spec §5).
package engine

import "time"

// Kind identifies which variant a key's value holds.
type Kind int

const (
	KindNone Kind = iota
	KindAtom
	KindList
	KindStream
)

// String renders the kind the way TYPE reports it.
func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "string"
	case KindList:
		return "list"
	case KindStream:
		return "stream"
	default:
		return "none"
	}
}

type value struct {
	kind   Kind
	atom   []byte
	list   [][]byte
	stream *Stream
}

// Store is the key -> typed value mapping plus the per-key expiration
// table of spec §3/§4.1.
type Store struct {
	values  map[string]*value
	expires map[string]time.Time
}

// NewStore returns an empty keyspace.
func NewStore() *Store {
	return &Store{
		values:  make(map[string]*value),
		expires: make(map[string]time.Time),
	}
}

// expire removes key if its deadline has passed, reporting whether it did.
func (s *Store) expire(key string) bool {
	deadline, has := s.expires[key]
	if !has {
		return false
	}
	if time.Now().Before(deadline) {
		return false
	}
	delete(s.values, key)
	delete(s.expires, key)
	return true
}

// get returns the live (non-expired) value for key, or nil.
func (s *Store) get(key string) *value {
	s.expire(key)
	return s.values[key]
}

// InsertAtom unconditionally writes an Atom, clearing any prior value and
// expiration.
func (s *Store) InsertAtom(key string, val []byte) {
	s.values[key] = &value{kind: KindAtom, atom: val}
	delete(s.expires, key)
}

// SetExpiration records an absolute deadline of now + ttl for key.
func (s *Store) SetExpiration(key string, ttl time.Duration) {
	s.expires[key] = time.Now().Add(ttl)
}

// Observe returns the Atom value for key and whether it is present
// (absent if missing, just-expired, or not an Atom).
func (s *Store) Observe(key string) ([]byte, bool) {
	v := s.get(key)
	if v == nil || v.kind != KindAtom {
		return nil, false
	}
	return v.atom, true
}

// TypeOf reports the live variant stored at key.
func (s *Store) TypeOf(key string) Kind {
	v := s.get(key)
	if v == nil {
		return KindNone
	}
	return v.kind
}

// Delete removes keys unconditionally, returning how many were actually
// present.
func (s *Store) Delete(keys ...string) int {
	n := 0
	for _, k := range keys {
		if s.get(k) != nil {
			n++
		}
		delete(s.values, k)
		delete(s.expires, k)
	}
	return n
}

// Exists returns how many of keys are currently present.
func (s *Store) Exists(keys ...string) int {
	n := 0
	for _, k := range keys {
		if s.get(k) != nil {
			n++
		}
	}
	return n
}

// TTLMillis returns the milliseconds remaining before key's expiration, -1
// if key exists with no expiration set, or -2 if key is absent/expired.
func (s *Store) TTLMillis(key string) int64 {
	if s.get(key) == nil {
		return -2
	}
	deadline, has := s.expires[key]
	if !has {
		return -1
	}
	remaining := time.Until(deadline)
	if remaining < 0 {
		return 0
	}
	return remaining.Milliseconds()
}

// listFor returns the list at key, creating it if absent, or an error if
// key holds a different variant.
func (s *Store) listFor(key string) (*value, error) {
	v := s.get(key)
	if v == nil {
		v = &value{kind: KindList}
		s.values[key] = v
		return v, nil
	}
	if v.kind != KindList {
		return nil, ErrVariantMismatch
	}
	return v, nil
}

// RPush appends vals to the back of the list at key, creating it if
// missing. Returns the new length.
func (s *Store) RPush(key string, vals ...[]byte) (int, error) {
	v, err := s.listFor(key)
	if err != nil {
		return 0, err
	}
	v.list = append(v.list, vals...)
	return len(v.list), nil
}

// LPush prepends vals to the front of the list at key, one at a time, so
// that the resulting prefix order is the reverse of vals. Returns the new
// length.
func (s *Store) LPush(key string, vals ...[]byte) (int, error) {
	v, err := s.listFor(key)
	if err != nil {
		return 0, err
	}
	for _, val := range vals {
		v.list = append([][]byte{val}, v.list...)
	}
	return len(v.list), nil
}

// LPop removes and returns up to n elements from the front of the list at
// key. A missing or empty list, or n == 0, yields an empty (never nil)
// slice.
func (s *Store) LPop(key string, n int) [][]byte {
	if n <= 0 {
		return [][]byte{}
	}
	v := s.get(key)
	if v == nil || v.kind != KindList || len(v.list) == 0 {
		return [][]byte{}
	}
	if n > len(v.list) {
		n = len(v.list)
	}
	popped := make([][]byte, n)
	copy(popped, v.list[:n])
	v.list = v.list[n:]
	return popped
}

// LLen returns the length of the list at key, 0 if missing/expired.
func (s *Store) LLen(key string) int {
	v := s.get(key)
	if v == nil || v.kind != KindList {
		return 0
	}
	return len(v.list)
}

// LRange returns the inclusive range [start, stop] of the list at key,
// with negative indices counting from the end, clamped into bounds.
func (s *Store) LRange(key string, start, stop int) [][]byte {
	v := s.get(key)
	if v == nil || v.kind != KindList {
		return [][]byte{}
	}
	n := len(v.list)
	if n == 0 {
		return [][]byte{}
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop > n-1 {
		stop = n - 1
	}
	if start > stop {
		return [][]byte{}
	}
	out := make([][]byte, stop-start+1)
	copy(out, v.list[start:stop+1])
	return out
}

// streamFor returns the stream at key, creating it if absent, or an error
// if key holds a different variant.
func (s *Store) streamFor(key string) (*value, error) {
	v := s.get(key)
	if v == nil {
		v = &value{kind: KindStream, stream: newStream()}
		s.values[key] = v
		return v, nil
	}
	if v.kind != KindStream {
		return nil, ErrVariantMismatch
	}
	return v, nil
}

// XAdd resolves requestedID against the stream at key (creating it if
// missing) and appends fields under the concrete id, per spec §4.2.
func (s *Store) XAdd(key, requestedID string, fields [][]byte) (StreamID, error) {
	v, err := s.streamFor(key)
	if err != nil {
		return StreamID{}, err
	}
	id, err := v.stream.resolveID(requestedID, nowMs())
	if err != nil {
		return StreamID{}, err
	}
	if err := v.stream.Append(id, fields); err != nil {
		return StreamID{}, err
	}
	return id, nil
}

// XLast returns the last record of the stream at key.
func (s *Store) XLast(key string) (Record, bool) {
	v := s.get(key)
	if v == nil || v.kind != KindStream {
		return Record{}, false
	}
	return v.stream.Last()
}

// XFirst returns the first record of the stream at key.
func (s *Store) XFirst(key string) (Record, bool) {
	v := s.get(key)
	if v == nil || v.kind != KindStream {
		return Record{}, false
	}
	return v.stream.First()
}

// XRange returns the inclusive range of records between start and end.
func (s *Store) XRange(key string, start, end StreamID) []Record {
	v := s.get(key)
	if v == nil || v.kind != KindStream {
		return nil
	}
	return v.stream.Range(start, end)
}

// XReadAfter returns every record with id strictly greater than after.
func (s *Store) XReadAfter(key string, after StreamID) []Record {
	v := s.get(key)
	if v == nil || v.kind != KindStream {
		return nil
	}
	return v.stream.After(after)
}

// KeyCount returns the number of keys currently tracked (including any not
// yet lazily expired) — used for the approximate metrics gauge only.
func (s *Store) KeyCount() int {
	return len(s.values)
}
