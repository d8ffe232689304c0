package engine

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// StreamID is a stream record identifier, a (ms, seq) pair. ms is modeled
// as an arbitrary-precision unsigned integer per spec §9 ("treat ms as
// 128-bit to tolerate future epochs and explicit user-chosen timestamps
// beyond 2^64"); seq is a 64-bit sequence counter.
type StreamID struct {
	Ms  *big.Int
	Seq uint64
}

// ZeroStreamID is the (0, 0) id, which can never be assigned to a record.
func ZeroStreamID() StreamID {
	return StreamID{Ms: big.NewInt(0), Seq: 0}
}

// IsZero reports whether id is (0, 0).
func (id StreamID) IsZero() bool {
	return id.Ms.Sign() == 0 && id.Seq == 0
}

// Cmp compares id to other, returning -1, 0, or 1, ordering lexicographically
// on the (ms, seq) pair — never on the string form.
func (id StreamID) Cmp(other StreamID) int {
	if c := id.Ms.Cmp(other.Ms); c != 0 {
		return c
	}
	switch {
	case id.Seq < other.Seq:
		return -1
	case id.Seq > other.Seq:
		return 1
	default:
		return 0
	}
}

// String returns the canonical "<ms>-<seq>" serialization.
func (id StreamID) String() string {
	return fmt.Sprintf("%s-%d", id.Ms.String(), id.Seq)
}

// ParseStreamID parses a fully explicit "<ms>-<seq>" id string.
func ParseStreamID(s string) (StreamID, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return StreamID{}, ErrInvalidIDFormat
	}
	ms, ok := new(big.Int).SetString(parts[0], 10)
	if !ok || ms.Sign() < 0 {
		return StreamID{}, ErrInvalidIDFormat
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return StreamID{}, ErrInvalidIDFormat
	}
	return StreamID{Ms: ms, Seq: seq}, nil
}

// parseMs parses a bare millisecond timestamp component.
func parseMs(s string) (*big.Int, error) {
	ms, ok := new(big.Int).SetString(s, 10)
	if !ok || ms.Sign() < 0 {
		return nil, ErrInvalidIDFormat
	}
	return ms, nil
}

// parseSeq parses a bare sequence component.
func parseSeq(s string) (uint64, error) {
	seq, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidIDFormat
	}
	return seq, nil
}
