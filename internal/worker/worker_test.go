package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGoRunsAndHaltWaits(t *testing.T) {
	var w Worker
	started := make(chan struct{})
	returned := make(chan struct{})

	w.Go(func() {
		close(started)
		<-w.HaltCh()
		close(returned)
	})

	<-started
	w.Halt()

	select {
	case <-returned:
	default:
		t.Fatal("Halt must not return before the goroutine does")
	}
}

func TestHaltIsIdempotent(t *testing.T) {
	var w Worker
	w.Go(func() { <-w.HaltCh() })
	require.NotPanics(t, func() {
		w.Halt()
		w.Halt()
	})
}

func TestHaltWithNoGoroutinesReturnsImmediately(t *testing.T) {
	var w Worker
	done := make(chan struct{})
	go func() {
		w.Halt()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Halt on an idle Worker should return promptly")
	}
}
