package tunnel

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/meshbridge/gatewaycore/internal/classify"
	"github.com/meshbridge/gatewaycore/internal/codec"
	"github.com/meshbridge/gatewaycore/internal/gwlog"
)

// WebSocketTunnel hijacks the client's raw TCP connection, performs the
// upgrade handshake against the resolved backend, and splices the two raw
// sockets together.
type WebSocketTunnel struct {
	emitter *gwlog.Emitter
}

// NewWebSocketTunnel builds a WebSocketTunnel.
func NewWebSocketTunnel(emitter *gwlog.Emitter) *WebSocketTunnel {
	return &WebSocketTunnel{emitter: emitter}
}

// Serve hijacks r's connection and tunnels it to info.BackendURL. It
// returns once the splice ends (peer closed) or the handshake failed.
func (t *WebSocketTunnel) Serve(w http.ResponseWriter, r *http.Request, info *classify.RequestInfo, requestID string) error {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return fmt.Errorf("tunnel: response writer does not support hijacking")
	}
	clientConn, clientBuf, err := hj.Hijack()
	if err != nil {
		return fmt.Errorf("tunnel: hijack failed: %w", err)
	}
	tuneConn(clientConn)

	fields := map[string]any{"request_id": requestID, "target_id": info.TargetID}

	upstreamConn, err := dialBackendURL(info.BackendURL.Scheme, info.BackendURL.Host)
	if err != nil {
		_ = clientConn.Close()
		ue := codec.NewUpstreamError(err, codec.ClassifyNetError(err))
		t.emitter.EmitError(ue, fields)
		return ue
	}

	outReq := buildUpstreamRequest(r, info)
	if err := outReq.Write(upstreamConn); err != nil {
		_ = clientConn.Close()
		_ = upstreamConn.Close()
		return fmt.Errorf("tunnel: writing upgrade request upstream: %w", err)
	}

	upstreamReader := bufio.NewReader(upstreamConn)
	resp, err := http.ReadResponse(upstreamReader, outReq)
	if err != nil {
		_ = clientConn.Close()
		_ = upstreamConn.Close()
		ue := codec.NewUpstreamError(err, codec.ClassifyNetError(err))
		t.emitter.EmitError(ue, fields)
		return ue
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.emitter.EmitLog(gwlog.Warn, "upstream refused websocket upgrade", fields)
		_, _ = clientConn.Write([]byte("HTTP/1.1 502 Bad Gateway\r\nContent-Length: 6\r\nConnection: close\r\n\r\ndenied"))
		_ = clientConn.Close()
		_ = upstreamConn.Close()
		return nil
	}

	tuneConn(upstreamConn)

	// Write the synthesized 101 response to the client strictly before any
	// payload byte from upstream.
	if _, err := clientConn.Write(encodeSwitchingProtocols(resp.Header)); err != nil {
		_ = clientConn.Close()
		_ = upstreamConn.Close()
		return fmt.Errorf("tunnel: writing switching-protocols response: %w", err)
	}

	// proxy_head: bytes ReadResponse buffered past the header terminator
	// belong to the upgraded stream and must be read first by the splice.
	var upstreamRead io.Reader = upstreamConn
	if n := upstreamReader.Buffered(); n > 0 {
		head, _ := upstreamReader.Peek(n)
		upstreamRead = io.MultiReader(bytes.NewReader(append([]byte(nil), head...)), upstreamConn)
	}

	return spliceFullClose(clientConn, clientBuf.Reader, upstreamConn, upstreamRead)
}

func encodeSwitchingProtocols(h http.Header) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	for key, values := range h {
		// One line per header; array-valued headers emit one line per
		// element.
		for _, v := range values {
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\r\n")
		}
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

func buildUpstreamRequest(r *http.Request, info *classify.RequestInfo) *http.Request {
	out := r.Clone(r.Context())
	out.URL.Scheme = info.BackendURL.Scheme
	out.URL.Host = info.BackendURL.Host
	out.URL.Path = info.BackendURL.Path
	out.URL.RawQuery = info.BackendURL.RawQuery
	out.RequestURI = ""
	if info.TargetMethod != "" {
		out.Method = info.TargetMethod
	}
	if out.Host != "" && strings.HasSuffix(out.Host, info.BackendURL.Host) {
		out.Host = ""
	}
	return out
}

func dialBackendURL(scheme, hostport string) (net.Conn, error) {
	if scheme == "wss" || scheme == "https" {
		return tls.Dial("tcp", hostport, &tls.Config{})
	}
	return net.Dial("tcp", hostport)
}
