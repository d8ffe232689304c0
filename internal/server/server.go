// Package server implements the TCP accept loop and per-connection
// dispatch that spec.md §1 calls out as an external collaborator: framed
// I/O in, framed I/O out, one shared engine underneath. Modeled on the
// teacher's server/cborplugin.Server (Accept/Wait) and
// client/cborplugin.incomingConn (per-connection worker), adapted from a
// CBOR-over-unix-socket transport to RESP-over-TCP.
package server

import (
	"net"
	"sync"

	logging "gopkg.in/op/go-logging.v1"

	"keyspaced/internal/executor"
	"keyspaced/internal/log"
	"keyspaced/internal/metrics"
	"keyspaced/internal/worker"
)

// Server owns the listener and the set of open connections.
type Server struct {
	worker.Worker

	ln         net.Listener
	engine     *executor.Engine
	logBackend *log.Backend
	log        *logging.Logger
	metrics    *metrics.Metrics

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// New binds addr and returns a Server ready to Accept.
func New(addr string, engine *executor.Engine, logBackend *log.Backend, m *metrics.Metrics) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		ln:         ln,
		engine:     engine,
		logBackend: logBackend,
		log:        logBackend.GetLogger("server"),
		metrics:    m,
		conns:      make(map[*conn]struct{}),
	}, nil
}

// Addr returns the bound listener address (useful in tests that bind
// ":0").
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Accept starts the accept loop in the background.
func (s *Server) Accept() {
	s.log.Noticef("listening on %s", s.ln.Addr())
	s.Go(s.acceptLoop)
}

func (s *Server) acceptLoop() {
	for {
		raw, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.HaltCh():
				return
			default:
				s.log.Errorf("accept error: %v", err)
				return
			}
		}
		c := newConn(s, raw)
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.ConnectionGauge.Inc()
		}
		s.log.Debugf("accepted connection from %s", raw.RemoteAddr())
		s.Go(c.worker)
	}
}

func (s *Server) onClosed(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ConnectionGauge.Dec()
	}
}

// Shutdown closes the listener (unblocking the accept loop), closes every
// open connection (unblocking their in-flight reads), and waits for all
// tracked goroutines to return.
func (s *Server) Shutdown() {
	s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		c.raw.Close()
	}
	s.mu.Unlock()
	s.Halt()
}
