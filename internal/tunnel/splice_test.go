package tunnel

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpliceFullCloseClosesBothWhenOneSideCloses(t *testing.T) {
	aServer, aClient := net.Pipe()
	bServer, bClient := net.Pipe()

	done := make(chan error, 1)
	go func() { done <- spliceFullClose(aServer, aServer, bServer, bServer) }()

	go func() {
		_, _ = aClient.Write([]byte("ping"))
	}()

	buf := make([]byte, 4)
	n, err := bClient.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	require.NoError(t, aClient.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("spliceFullClose did not close the other side within a scheduler tick")
	}

	_, err = bClient.Write([]byte("x"))
	require.Error(t, err, "bServer must be closed once spliceFullClose returns")
}

func TestSpliceHalfCloseDrainsThenPropagatesEOF(t *testing.T) {
	aListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer aListener.Close()
	bListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer bListener.Close()

	aServerCh := make(chan net.Conn, 1)
	go func() { c, _ := aListener.Accept(); aServerCh <- c }()
	aClient, err := net.Dial("tcp", aListener.Addr().String())
	require.NoError(t, err)
	aServer := <-aServerCh

	bServerCh := make(chan net.Conn, 1)
	go func() { c, _ := bListener.Accept(); bServerCh <- c }()
	bClient, err := net.Dial("tcp", bListener.Addr().String())
	require.NoError(t, err)
	bServer := <-bServerCh

	done := make(chan error, 1)
	go func() { done <- spliceHalfClose(aServer, aServer, bServer, bServer) }()

	// aClient sends its last bytes then half-closes; the splice must still
	// deliver those bytes to bClient before propagating the EOF.
	_, err = aClient.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, aClient.(*net.TCPConn).CloseWrite())

	bClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2)
	n, err := io.ReadFull(bClient, buf)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))

	// Once drained, bClient observes EOF (half-close propagated) without
	// the whole tunnel having been torn down yet.
	_, err = bClient.Read(buf)
	require.ErrorIs(t, err, io.EOF)

	_ = bClient.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("spliceHalfClose never completed")
	}
}
