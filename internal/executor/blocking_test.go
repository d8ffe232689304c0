package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBLPopReturnsImmediatelyWhenDataPresent(t *testing.T) {
	e := newTestEngine()
	dispatch(e, "RPUSH", "l", "x")

	resp := dispatch(e, "BLPOP", "l", "0")
	require.Equal(t, Array{BulkString("l"), BulkString("x")}, resp)
}

func TestBLPopWakesOnPush(t *testing.T) {
	e := newTestEngine()
	done := make(chan Response, 1)
	go func() {
		done <- dispatch(e, "BLPOP", "l", "5")
	}()

	time.Sleep(20 * time.Millisecond) // give the BLPOP time to park
	dispatch(e, "RPUSH", "l", "woken")

	select {
	case resp := <-done:
		require.Equal(t, Array{BulkString("l"), BulkString("woken")}, resp)
	case <-time.After(2 * time.Second):
		t.Fatal("BLPOP did not wake after push")
	}
}

func TestBLPopTimesOut(t *testing.T) {
	e := newTestEngine()
	resp := dispatch(e, "BLPOP", "l", "0.05")
	require.Equal(t, NullArray, resp)
}

func TestBLPopCanceledByContext(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Response, 1)
	go func() {
		done <- Dispatch(ctx, e, "BLPOP", [][]byte{b("l"), b("0")})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case resp := <-done:
		require.Equal(t, NullArray, resp)
	case <-time.After(2 * time.Second):
		t.Fatal("BLPOP did not unblock on context cancellation")
	}
}

func TestXReadNonBlockingReturnsNullWhenNoNewData(t *testing.T) {
	e := newTestEngine()
	dispatch(e, "XADD", "s", "1-1", "f", "v")

	resp := dispatch(e, "XREAD", "STREAMS", "s", "1-1")
	require.Equal(t, NullArray, resp)
}

func TestXReadBlockWakesOnAppend(t *testing.T) {
	e := newTestEngine()
	dispatch(e, "XADD", "s", "1-1", "f", "v")

	done := make(chan Response, 1)
	go func() {
		done <- dispatch(e, "XREAD", "BLOCK", "5000", "STREAMS", "s", "$")
	}()

	time.Sleep(20 * time.Millisecond)
	dispatch(e, "XADD", "s", "1-2", "f", "v2")

	select {
	case resp := <-done:
		arr, ok := resp.(Array)
		require.True(t, ok)
		require.Len(t, arr, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("XREAD did not wake after append")
	}
}

func TestXReadSyntaxErrors(t *testing.T) {
	e := newTestEngine()
	_, ok := dispatch(e, "XREAD", "STREAMS").(SimpleError)
	require.True(t, ok)
	_, ok = dispatch(e, "XREAD", "BLOCK", "STREAMS", "s", "$").(SimpleError)
	require.True(t, ok)
	_, ok = dispatch(e, "XREAD", "STREAMS", "s").(SimpleError)
	require.True(t, ok)
}
