package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"

	"keyspaced/internal/executor"
	"keyspaced/internal/log"
	"keyspaced/internal/metrics"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logBackend, err := log.New(nil, "CRITICAL")
	require.NoError(t, err)

	eng := executor.NewEngine(1, 100)
	srv, err := New("127.0.0.1:0", eng, logBackend, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	srv.Accept()
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestServerRoundTripsPingOverRealSocket(t *testing.T) {
	srv := newTestServer(t)

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "+PONG\r\n", line)
}

func TestServerHandlesMultipleConnections(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
		require.NoError(t, err)
		_, err = conn.Write([]byte("*1\r\n$4\r\nPING\r\n"))
		require.NoError(t, err)
		line, err := bufio.NewReader(conn).ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "+PONG\r\n", line)
		conn.Close()
	}
}

func TestServerShutdownUnblocksInFlightConnection(t *testing.T) {
	srv := newTestServer(t)

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		srv.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown must not deadlock with an open connection")
	}
}

// TestServerShutdownUnblocksBlockingCommand covers the gap that an idle
// connection (parked in ReadCommand, unblocked by closing its socket)
// doesn't: a client parked in an indefinite BLPOP with no data ever
// coming must still be released by Shutdown, because the connection's
// halt watcher cancels its context as soon as HaltCh closes, rather than
// waiting on a push that will never arrive.
func TestServerShutdownUnblocksBlockingCommand(t *testing.T) {
	srv := newTestServer(t)

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("*3\r\n$5\r\nBLPOP\r\n$1\r\nk\r\n$1\r\n0\r\n"))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond) // give BLPOP time to park with no data ever arriving

	done := make(chan struct{})
	go func() {
		srv.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown must not hang on a connection parked in an indefinite blocking command")
	}
}

// TestListenerPairDialsLikeNettest exercises the handler loop on a
// loopback TCP listener from nettest.NewLocalListener, with the Server
// assembled by hand around it instead of through New.
func TestListenerPairDialsLikeNettest(t *testing.T) {
	ln, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	defer ln.Close()

	logBackend, err := log.New(nil, "CRITICAL")
	require.NoError(t, err)
	eng := executor.NewEngine(1, 100)
	srv := &Server{
		ln:         ln,
		engine:     eng,
		logBackend: logBackend,
		log:        logBackend.GetLogger("test"),
		metrics:    metrics.New(prometheus.NewRegistry()),
		conns:      make(map[*conn]struct{}),
	}
	srv.Accept()
	defer srv.Shutdown()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("*1\r\n$4\r\nECHO\r\n$2\r\nhi\r\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "$2\r\n", line)
}
