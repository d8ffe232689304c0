package executor

import (
	"context"
	"strconv"
	"time"

	"keyspaced/internal/engine"
)

// Dispatch runs one parsed command (name plus its raw argument bytes)
// against e and returns its response. ctx is the owning connection's
// lifetime context: blocking commands select on it alongside their wake
// and timeout so a client disconnect unparks them immediately (spec §5's
// cancellation semantics).
func Dispatch(ctx context.Context, e *Engine, name string, args [][]byte) Response {
	switch upper(name) {
	case "PING":
		return cmdPing(args)
	case "ECHO":
		return cmdEcho(args)
	case "SET":
		return cmdSet(e, args)
	case "GET":
		return cmdGet(e, args)
	case "TYPE":
		return cmdType(e, args)
	case "DEL":
		return cmdDel(e, args)
	case "EXISTS":
		return cmdExists(e, args)
	case "TTL":
		return cmdTTL(e, args)
	case "RPUSH":
		return cmdPush(e, args, e.RPush)
	case "LPUSH":
		return cmdPush(e, args, e.LPush)
	case "LPOP":
		return cmdLPop(e, args)
	case "LRANGE":
		return cmdLRange(e, args)
	case "LLEN":
		return cmdLLen(e, args)
	case "XADD":
		return cmdXAdd(e, args)
	case "XRANGE":
		return cmdXRange(e, args)
	case "BLPOP":
		return cmdBLPop(ctx, e, args)
	case "XREAD":
		return cmdXRead(ctx, e, args)
	default:
		return SimpleError("ERR unknown command '" + name + "'")
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func cmdPing(args [][]byte) Response {
	if len(args) != 0 {
		return SimpleError("ERR wrong number of arguments for 'ping' command")
	}
	return SimpleString("PONG")
}

func cmdEcho(args [][]byte) Response {
	if len(args) != 1 {
		return SimpleError("ERR wrong number of arguments for 'echo' command")
	}
	return BulkString(args[0])
}

func cmdSet(e *Engine, args [][]byte) Response {
	if len(args) != 2 && len(args) != 4 {
		return SimpleError("ERR wrong number of arguments for 'set' command")
	}
	key, val := string(args[0]), args[1]
	var ttl *time.Duration
	if len(args) == 4 {
		if upper(string(args[2])) != "PX" {
			return SimpleError("ERR syntax error")
		}
		ms, err := strconv.ParseInt(string(args[3]), 10, 64)
		if err != nil || ms < 0 {
			return SimpleError("ERR value is not an integer or out of range")
		}
		d := time.Duration(ms) * time.Millisecond
		ttl = &d
	}
	e.SetAtom(key, val, ttl)
	return SimpleString("OK")
}

func cmdGet(e *Engine, args [][]byte) Response {
	if len(args) != 1 {
		return SimpleError("ERR wrong number of arguments for 'get' command")
	}
	val, ok := e.Get(string(args[0]))
	if !ok {
		return NullBulk
	}
	return BulkString(val)
}

func cmdType(e *Engine, args [][]byte) Response {
	if len(args) != 1 {
		return SimpleError("ERR wrong number of arguments for 'type' command")
	}
	return SimpleString(e.TypeOf(string(args[0])).String())
}

func cmdDel(e *Engine, args [][]byte) Response {
	if len(args) == 0 {
		return SimpleError("ERR wrong number of arguments for 'del' command")
	}
	return Integer(e.Del(keys(args)))
}

func cmdExists(e *Engine, args [][]byte) Response {
	if len(args) == 0 {
		return SimpleError("ERR wrong number of arguments for 'exists' command")
	}
	return Integer(e.Exists(keys(args)))
}

func cmdTTL(e *Engine, args [][]byte) Response {
	if len(args) != 1 {
		return SimpleError("ERR wrong number of arguments for 'ttl' command")
	}
	return Integer(e.TTLMillis(string(args[0])))
}

func keys(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

func cmdPush(e *Engine, args [][]byte, push func(string, [][]byte) (int, error)) Response {
	if len(args) < 2 {
		return SimpleError("ERR wrong number of arguments for 'push' command")
	}
	n, err := push(string(args[0]), args[1:])
	if err != nil {
		return Err(err)
	}
	return Integer(n)
}

func cmdLPop(e *Engine, args [][]byte) Response {
	if len(args) != 1 && len(args) != 2 {
		return SimpleError("ERR wrong number of arguments for 'lpop' command")
	}
	key := string(args[0])
	explicitCount := len(args) == 2
	n := 1
	if explicitCount {
		parsed, err := strconv.Atoi(string(args[1]))
		if err != nil || parsed < 0 {
			return SimpleError("ERR value is not an integer or out of range")
		}
		n = parsed
	}
	vals := e.LPop(key, n)
	if !explicitCount {
		if len(vals) == 0 {
			return NullBulk
		}
		return BulkString(vals[0])
	}
	arr := make(Array, len(vals))
	for i, v := range vals {
		arr[i] = BulkString(v)
	}
	return arr
}

func cmdLRange(e *Engine, args [][]byte) Response {
	if len(args) != 3 {
		return SimpleError("ERR wrong number of arguments for 'lrange' command")
	}
	start, err1 := strconv.Atoi(string(args[1]))
	stop, err2 := strconv.Atoi(string(args[2]))
	if err1 != nil || err2 != nil {
		return SimpleError("ERR value is not an integer or out of range")
	}
	vals := e.LRange(string(args[0]), start, stop)
	arr := make(Array, len(vals))
	for i, v := range vals {
		arr[i] = BulkString(v)
	}
	return arr
}

func cmdLLen(e *Engine, args [][]byte) Response {
	if len(args) != 1 {
		return SimpleError("ERR wrong number of arguments for 'llen' command")
	}
	return Integer(e.LLen(string(args[0])))
}

func cmdXAdd(e *Engine, args [][]byte) Response {
	if len(args) < 3 || (len(args)-2)%2 != 0 {
		return SimpleError("ERR wrong number of arguments for 'xadd' command")
	}
	key, reqID, fields := string(args[0]), string(args[1]), args[2:]
	id, err := e.XAdd(key, reqID, fields)
	if err != nil {
		return Err(err)
	}
	return BulkString(id.String())
}

func cmdXRange(e *Engine, args [][]byte) Response {
	key := ""
	startTok, endTok := "-", "+"
	switch len(args) {
	case 1:
		key = string(args[0])
	case 2:
		key, startTok = string(args[0]), string(args[1])
	case 3:
		key, startTok, endTok = string(args[0]), string(args[1]), string(args[2])
	default:
		return SimpleError("ERR wrong number of arguments for 'xrange' command")
	}
	start, end, err := resolveRangeTokens(e, key, startTok, endTok)
	if err != nil {
		return Err(err)
	}
	records := e.XRange(key, start, end)
	return encodeRecords(records)
}

func resolveRangeTokens(e *Engine, key, startTok, endTok string) (engine.StreamID, engine.StreamID, error) {
	first, last, hasFirst, hasLast := e.XBounds(key)
	start := engine.ZeroStreamID()
	end := engine.ZeroStreamID()

	switch {
	case startTok == "-":
		if hasFirst {
			start = first
		}
	default:
		id, err := engine.ParseStreamID(startTok)
		if err != nil {
			return start, end, err
		}
		start = id
	}

	switch {
	case endTok == "+":
		if hasLast {
			end = last
		} else {
			end = start
		}
	default:
		id, err := engine.ParseStreamID(endTok)
		if err != nil {
			return start, end, err
		}
		end = id
	}
	return start, end, nil
}

func encodeRecords(records []engine.Record) Response {
	arr := make(Array, len(records))
	for i, r := range records {
		fields := make(Array, 0, len(r.Fields)*2)
		for _, fv := range r.Fields {
			fields = append(fields, BulkString(fv.Field), BulkString(fv.Value))
		}
		arr[i] = Array{BulkString(r.ID.String()), fields}
	}
	return arr
}
