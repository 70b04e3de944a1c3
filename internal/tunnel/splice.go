// Package tunnel implements the websocket and raw TCP tunnel engines: both
// are, at their core, a bidirectional byte splice between a client socket
// and an upstream socket.
package tunnel

import (
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// tuneConn applies the tunnel's socket tuning to upstream/websocket
// connections: TCP_NODELAY on, keep-alive enabled with zero delay, no idle
// deadline (Go sockets have none until SetDeadline is called, so "disabled"
// is simply never calling it).
func tuneConn(conn net.Conn) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tcp.SetNoDelay(true)
	_ = tcp.SetKeepAlive(true)
	_ = tcp.SetKeepAlivePeriod(0)
}

// halfClose closes the write side of conn if it supports it, so the peer
// observes EOF without tearing down the read side.
func halfClose(conn net.Conn) {
	type writeCloser interface {
		CloseWrite() error
	}
	if wc, ok := conn.(writeCloser); ok {
		_ = wc.CloseWrite()
	}
}

// spliceFullClose copies bytes in both directions between a and b. As soon
// as either direction ends (EOF or error) it closes both connections
// immediately, so one side closing tears down the other right away.
func spliceFullClose(a net.Conn, aReader io.Reader, b net.Conn, bReader io.Reader) error {
	var g errgroup.Group
	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			_ = a.Close()
			_ = b.Close()
		})
	}

	g.Go(func() error {
		_, err := io.Copy(b, aReader)
		closeBoth()
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(a, bReader)
		closeBoth()
		return err
	})

	return g.Wait()
}

// spliceHalfClose copies bytes in both directions between a and b. When one
// direction ends, only its destination's write side is half-closed; both
// connections are fully closed once both directions have ended, allowing a
// one-sided shutdown without killing the still-active direction.
func spliceHalfClose(a net.Conn, aReader io.Reader, b net.Conn, bReader io.Reader) error {
	var g errgroup.Group

	g.Go(func() error {
		_, err := io.Copy(b, aReader)
		halfClose(b)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(a, bReader)
		halfClose(a)
		return err
	})

	err := g.Wait()
	_ = a.Close()
	_ = b.Close()
	return err
}
