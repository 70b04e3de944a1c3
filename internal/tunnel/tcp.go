package tunnel

import (
	"net"

	"github.com/meshbridge/gatewaycore/internal/codec"
	"github.com/meshbridge/gatewaycore/internal/gwlog"
)

// TCPTunnel bridges an accepted client connection to a backend dialed by
// address. It is not wired into the default HTTP middleware path; see
// internal/gateway.NewTCPTunnelListener for its standalone mount point.
type TCPTunnel struct {
	emitter *gwlog.Emitter
}

// NewTCPTunnel builds a TCPTunnel.
func NewTCPTunnel(emitter *gwlog.Emitter) *TCPTunnel {
	return &TCPTunnel{emitter: emitter}
}

// Serve dials backendAddr and splices it with an already-accepted client
// connection until either side closes.
func (t *TCPTunnel) Serve(clientConn net.Conn, backendAddr string) error {
	upstreamConn, err := net.Dial("tcp", backendAddr)
	if err != nil {
		_ = clientConn.Close()
		ue := codec.NewUpstreamError(err, codec.ClassifyNetError(err))
		t.emitter.EmitError(ue, map[string]any{"backend": backendAddr})
		return ue
	}
	tuneConn(clientConn)
	tuneConn(upstreamConn)
	return spliceHalfClose(clientConn, clientConn, upstreamConn, upstreamConn)
}
