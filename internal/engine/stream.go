package engine

import (
	"math/big"
	"sort"
	"time"
)

// Record is one entry in a stream: an id plus an ordered-by-insertion set of
// field/value pairs. Fields is a slice rather than a map so that iteration
// order matches insertion order for the wire response, while lookups during
// assembly still dedupe on field name (last write wins).
type Record struct {
	ID     StreamID
	Fields []FieldValue
}

// FieldValue is one field/value pair of a stream record.
type FieldValue struct {
	Field []byte
	Value []byte
}

// buildFields assembles a Record's Fields from a flat field/value argument
// list. A duplicate field name keeps the position of its first occurrence
// and the value of its last.
func buildFields(flat [][]byte) []FieldValue {
	order := make([]string, 0, len(flat)/2)
	byField := make(map[string][]byte, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		f, v := flat[i], flat[i+1]
		key := string(f)
		if _, seen := byField[key]; !seen {
			order = append(order, key)
		}
		byField[key] = v
	}
	out := make([]FieldValue, 0, len(order))
	for _, key := range order {
		out = append(out, FieldValue{Field: []byte(key), Value: byField[key]})
	}
	return out
}

// Stream is an append-only, strictly-increasing-by-id sequence of records.
type Stream struct {
	records []Record
}

func newStream() *Stream {
	return &Stream{}
}

// Last returns the stream's last record, or false if empty.
func (s *Stream) Last() (Record, bool) {
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// First returns the stream's first record, or false if empty.
func (s *Stream) First() (Record, bool) {
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[0], true
}

// resolveID computes the concrete id an XADD with the given requested id
// string will receive, per spec §4.2.
func (s *Stream) resolveID(requested string, nowMs *big.Int) (StreamID, error) {
	last, hasLast := s.Last()

	if requested == "*" {
		return StreamID{Ms: nowMs, Seq: s.autoSeq(nowMs, hasLast, last, true)}, nil
	}

	msPart := requested
	seqPart := ""
	for i := len(requested) - 1; i >= 0; i-- {
		if requested[i] == '-' {
			msPart, seqPart = requested[:i], requested[i+1:]
			break
		}
	}
	if seqPart == "" {
		// no '-' found at all: not a recognized form.
		if msPart == requested {
			return StreamID{}, ErrInvalidIDFormat
		}
	}

	ms, err := parseMs(msPart)
	if err != nil {
		return StreamID{}, err
	}

	if seqPart == "*" {
		return StreamID{Ms: ms, Seq: s.autoSeq(ms, hasLast, last, false)}, nil
	}

	seq, err := parseSeq(seqPart)
	if err != nil {
		return StreamID{}, err
	}
	return StreamID{Ms: ms, Seq: seq}, nil
}

// autoSeq resolves the "*" sequence component, per spec §4.2:
//   - non-empty stream with ms == last.ms: last.seq + 1
//   - otherwise: 0, except an empty stream with an explicit (non-"*")
//     timestamp of exactly 0 seeds at seq 1 (so that the first id assigned
//     is never (0, 0)).
func (s *Stream) autoSeq(ms *big.Int, hasLast bool, last Record, msWasAuto bool) uint64 {
	if hasLast && ms.Cmp(last.ID.Ms) == 0 {
		return last.ID.Seq + 1
	}
	if !hasLast && !msWasAuto && ms.Sign() == 0 {
		return 1
	}
	return 0
}

// Append validates and appends a record with the given concrete id,
// enforcing invariants 2 and 3 of spec §3.
func (s *Stream) Append(id StreamID, flat [][]byte) error {
	if id.IsZero() {
		return ErrStreamIDZero
	}
	if last, ok := s.Last(); ok && id.Cmp(last.ID) <= 0 {
		return ErrStreamIDNotGreater
	}
	s.records = append(s.records, Record{ID: id, Fields: buildFields(flat)})
	return nil
}

// Range returns the inclusive slice of records with start <= id <= end,
// located by numeric (ms, seq) comparison (never string comparison, per
// spec §4.2/§9), without requiring an exact-match hit at either bound.
func (s *Stream) Range(start, end StreamID) []Record {
	if start.Cmp(end) > 0 {
		return nil
	}
	lo := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].ID.Cmp(start) >= 0
	})
	hi := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].ID.Cmp(end) > 0
	})
	if lo >= hi {
		return nil
	}
	out := make([]Record, hi-lo)
	copy(out, s.records[lo:hi])
	return out
}

// After returns every record with id strictly greater than after.
func (s *Stream) After(after StreamID) []Record {
	idx := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].ID.Cmp(after) > 0
	})
	if idx >= len(s.records) {
		return nil
	}
	out := make([]Record, len(s.records)-idx)
	copy(out, s.records[idx:])
	return out
}

// nowMs is the current wall-clock time in milliseconds since epoch, as an
// arbitrary-precision integer (see StreamID.Ms).
func nowMs() *big.Int {
	return big.NewInt(time.Now().UnixMilli())
}
