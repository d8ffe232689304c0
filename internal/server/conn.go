package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"

	logging "gopkg.in/op/go-logging.v1"

	"keyspaced/internal/executor"
	"keyspaced/internal/resp"
)

// conn services one client's pipeline of requests in arrival order,
// following the teacher's per-connection worker idiom
// (client/cborplugin/incoming_conn.go's decode-dispatch-repeat loop).
//
// Framing reads are owned by a dedicated readLoop goroutine rather than by
// worker itself, so that a client disconnecting (or the server halting)
// while a command is parked in a blocking wait (BLPOP/XREAD) is still
// noticed immediately. Without this, worker would be the only goroutine
// watching the socket and c.ctx, but worker is itself the goroutine
// blocked inside Dispatch during a parked command, so nothing would ever
// observe the disconnect or the halt until the wait woke up on its own.
// readLoop is concurrently blocked reading the *next* frame the whole
// time a command runs, so it notices a closed socket right away and
// cancels ctx, which is exactly what awaitWake (internal/executor) selects
// on alongside its notify channel and timer.
type conn struct {
	log    *logging.Logger
	raw    net.Conn
	reader *bufio.Reader

	server *Server
	ctx    context.Context
	cancel context.CancelFunc
}

func newConn(s *Server, raw net.Conn) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{
		log:    s.logBackend.GetLogger("conn:" + raw.RemoteAddr().String()),
		raw:    raw,
		reader: bufio.NewReader(raw),
		server: s,
		ctx:    ctx,
		cancel: cancel,
	}
}

// frame is one decoded request handed from readLoop to worker.
type frame struct {
	argv [][]byte
}

// readLoop owns c.reader for the connection's entire lifetime; worker
// never reads from the socket itself. On any read error — a real
// disconnect, a protocol error, or the socket closing because worker
// already returned — it cancels ctx and exits.
func (c *conn) readLoop(frames chan<- frame) {
	for {
		argv, err := resp.ReadCommand(c.reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.Debugf("protocol error, closing: %v", err)
			}
			c.cancel()
			return
		}
		select {
		case frames <- frame{argv: argv}:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *conn) worker() {
	defer func() {
		c.cancel()
		c.raw.Close()
		c.server.onClosed(c)
		c.log.Debug("connection closed")
	}()

	// Cancels ctx the instant the server halts, even if this connection is
	// otherwise idle or parked in a blocking command — Server.Shutdown
	// closes HaltCh before it waits on the Worker's WaitGroup, so every
	// live connection unblocks immediately instead of only at the next
	// wake or timeout.
	go func() {
		select {
		case <-c.server.HaltCh():
			c.cancel()
		case <-c.ctx.Done():
		}
	}()

	frames := make(chan frame, 1)
	go c.readLoop(frames)

	for {
		var f frame
		select {
		case <-c.ctx.Done():
			return
		case f = <-frames:
		}

		if len(f.argv) == 0 {
			continue
		}

		name := string(f.argv[0])
		c.server.metrics.CommandsTotal.WithLabelValues(upperForMetric(name)).Inc()

		response := executor.Dispatch(c.ctx, c.server.engine, name, f.argv[1:])
		if err := resp.WriteResponse(c.raw, response); err != nil {
			c.log.Debugf("write error, closing: %v", err)
			return
		}
	}
}

func upperForMetric(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch >= 'a' && ch <= 'z' {
			b[i] = ch - 'a' + 'A'
		}
	}
	return string(b)
}
