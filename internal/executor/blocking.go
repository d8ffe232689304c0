package executor

import (
	"context"
	"strconv"
	"time"
)

// cmdBLPop implements BLPOP <k> <timeout_s>, spec §4.4.
func cmdBLPop(ctx context.Context, e *Engine, args [][]byte) Response {
	if len(args) != 2 {
		return SimpleError("ERR wrong number of arguments for 'blpop' command")
	}
	key := string(args[0])
	timeoutSecs, err := strconv.ParseFloat(string(args[1]), 64)
	if err != nil || timeoutSecs < 0 {
		return SimpleError("ERR timeout is not a float or negative")
	}

	popped, ok, waiter := e.TryPopOrPark(key)
	if ok {
		return Array{BulkString(key), BulkString(popped)}
	}

	// Whichever fires first, re-probe the store below: a notification can
	// race a timeout, and a timeout can race a last-moment push.
	awaitWake(ctx, waiter.Out(), timeoutSecs)

	popped, ok = e.RetryPopAfterWake(key, waiter)
	if !ok {
		return NullArray
	}
	return Array{BulkString(key), BulkString(popped)}
}

// awaitWake blocks until either notifyCh receives, ctx is done, or
// timeoutSecs elapses (never, if timeoutSecs == 0). Returns whether a
// notification (as opposed to timeout/cancellation) was observed; the
// caller must re-probe the store regardless, since either path can lose a
// race to another consumer (spec §5).
func awaitWake(ctx context.Context, notifyCh <-chan interface{}, timeoutSecs float64) bool {
	if timeoutSecs == 0 {
		select {
		case <-notifyCh:
			return true
		case <-ctx.Done():
			return false
		}
	}
	timer := time.NewTimer(time.Duration(timeoutSecs * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-notifyCh:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// cmdXRead implements XREAD [BLOCK <ms>] STREAMS <k1..kN> <id1..idN>,
// spec §4.4.
func cmdXRead(ctx context.Context, e *Engine, args [][]byte) Response {
	parsed, errResp := parseXReadArgs(args)
	if errResp != nil {
		return errResp
	}

	queries := make([]StreamQuery, len(parsed.keys))
	for i, key := range parsed.keys {
		start, err := e.ResolveStreamStart(key, parsed.ids[i])
		if err != nil {
			return Err(err)
		}
		queries[i] = StreamQuery{Key: key, StartID: start}
	}

	results, waiter := e.TryReadOrPark(queries, parsed.block)
	if len(results) > 0 {
		return encodeXReadResults(results)
	}
	if waiter == nil {
		return NullArray
	}

	awaitWake(ctx, waiter.Out(), parsed.blockSecs)

	records := e.RetryReadAfterWake(waiter.Key, waiter.StartID, waiter)
	if len(records) == 0 {
		return NullArray
	}
	return encodeXReadResults([]StreamResult{{Key: waiter.Key, Records: records}})
}

type xreadArgs struct {
	block     bool
	blockSecs float64 // 0 means "wait indefinitely", matching BLOCK 0
	keys      []string
	ids       []string
}

func parseXReadArgs(args [][]byte) (*xreadArgs, Response) {
	i := 0
	result := &xreadArgs{}
	if i < len(args) && upper(string(args[i])) == "BLOCK" {
		if i+1 >= len(args) {
			return nil, SimpleError("ERR syntax error")
		}
		ms, err := strconv.ParseInt(string(args[i+1]), 10, 64)
		if err != nil || ms < 0 {
			return nil, SimpleError("ERR timeout is not an integer or out of range")
		}
		result.block = true
		result.blockSecs = float64(ms) / 1000.0
		i += 2
	}
	if i >= len(args) || upper(string(args[i])) != "STREAMS" {
		return nil, SimpleError("ERR syntax error")
	}
	i++
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, SimpleError("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified.")
	}
	n := len(rest) / 2
	result.keys = make([]string, n)
	result.ids = make([]string, n)
	for j := 0; j < n; j++ {
		result.keys[j] = string(rest[j])
		result.ids[j] = string(rest[n+j])
	}
	return result, nil
}

func encodeXReadResults(results []StreamResult) Response {
	arr := make(Array, len(results))
	for i, r := range results {
		arr[i] = Array{BulkString(r.Key), encodeRecords(r.Records)}
	}
	return arr
}
