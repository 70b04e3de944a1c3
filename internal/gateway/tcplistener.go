package gateway

import (
	"fmt"
	"net"

	"github.com/meshbridge/gatewaycore/internal/gwconfig"
	"github.com/meshbridge/gatewaycore/internal/gwlog"
	"github.com/meshbridge/gatewaycore/internal/tunnel"
)

// BackendResolver maps a listening port to the backend address the TCP
// Tunnel Engine should dial for a connection accepted on it.
type BackendResolver func(port int) (string, error)

// TCPTunnelListener is a standalone mount point for the raw TCP tunnel: it
// is never reached from Handler(), only from a host that explicitly runs it
// alongside the HTTP server, owning its own accept loop outside the
// request/response cycle.
type TCPTunnelListener struct {
	resolve  BackendResolver
	emitter  *gwlog.Emitter
	tunnel   *tunnel.TCPTunnel
	ports    []int
	listener []net.Listener
}

// NewTCPTunnelListener builds a TCPTunnelListener gated by cfg.SocketPorts:
// only those ports are eligible for raw TCP tunneling.
func NewTCPTunnelListener(cfg *gwconfig.GatewayConfig, resolve BackendResolver) *TCPTunnelListener {
	emitter := gwlog.NewEmitter(cfg.Logger)
	return &TCPTunnelListener{
		resolve: resolve,
		emitter: emitter,
		tunnel:  tunnel.NewTCPTunnel(emitter),
		ports:   append([]int(nil), cfg.SocketPorts...),
	}
}

// ListenAndServe opens one listener per configured socket port and tunnels
// every accepted connection to the address BackendResolver returns for that
// port. It blocks until any one listener fails to Accept.
func (l *TCPTunnelListener) ListenAndServe() error {
	if len(l.ports) == 0 {
		return fmt.Errorf("gateway: no socket_ports configured for TCP tunneling")
	}

	errCh := make(chan error, len(l.ports))
	for _, port := range l.ports {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			l.Close()
			return fmt.Errorf("gateway: listening on port %d: %w", port, err)
		}
		l.listener = append(l.listener, ln)
		go l.acceptLoop(ln, port, errCh)
	}
	return <-errCh
}

func (l *TCPTunnelListener) acceptLoop(ln net.Listener, port int, errCh chan<- error) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			errCh <- err
			return
		}
		go l.handle(conn, port)
	}
}

func (l *TCPTunnelListener) handle(conn net.Conn, port int) {
	backendAddr, err := l.resolve(port)
	if err != nil {
		l.emitter.EmitError(err, map[string]any{"port": port})
		_ = conn.Close()
		return
	}
	if err := l.tunnel.Serve(conn, backendAddr); err != nil {
		l.emitter.EmitError(err, map[string]any{"port": port, "backend": backendAddr})
	}
}

// Close tears down every listener opened by ListenAndServe.
func (l *TCPTunnelListener) Close() error {
	var firstErr error
	for _, ln := range l.listener {
		if err := ln.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
