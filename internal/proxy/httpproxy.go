// Package proxy implements the HTTP proxy engine: it builds the upstream
// request from a populated RequestInfo, streams the body both ways via
// net/http/httputil.ReverseProxy, and maps transport failures through the
// DNS-to-HTTP status map.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/meshbridge/gatewaycore/internal/classify"
	"github.com/meshbridge/gatewaycore/internal/codec"
	"github.com/meshbridge/gatewaycore/internal/gwlog"
)

// HTTPProxy forwards classified requests to their resolved backend.
type HTTPProxy struct {
	emitter   *gwlog.Emitter
	transport http.RoundTripper
}

// NewHTTPProxy builds an HTTPProxy. A nil transport falls back to
// http.DefaultTransport, which already dials TLS or plain TCP based on the
// request URL's scheme.
func NewHTTPProxy(emitter *gwlog.Emitter, transport http.RoundTripper) *HTTPProxy {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &HTTPProxy{emitter: emitter, transport: transport}
}

// Forward relays r to info.BackendURL and copies the upstream response back
// to w verbatim. It returns the mapped upstream error, if any, so the
// caller can surface it through its own next(err)-style error channel; a
// nil return means the response was already written to w successfully.
func (p *HTTPProxy) Forward(w http.ResponseWriter, r *http.Request, info *classify.RequestInfo, requestID string) error {
	tw := &trackingWriter{ResponseWriter: w}

	var upstreamErr error
	rp := &httputil.ReverseProxy{
		Transport: p.transport,
		Director:  director(info),
		ErrorHandler: func(rw http.ResponseWriter, req *http.Request, err error) {
			code := codec.ClassifyNetError(err)
			ue := codec.NewUpstreamError(err, code)
			upstreamErr = ue

			fields := map[string]any{
				"request_id":    requestID,
				"target_id":     info.TargetID,
				"original_code": ue.OriginalCode,
			}
			if tw.wroteHeader {
				p.emitter.EmitLog(gwlog.Error, "upstream transport error after headers flushed; closing", fields)
				return
			}
			p.emitter.EmitError(ue, fields)
			rw.WriteHeader(ue.StatusCode)
		},
	}
	rp.ServeHTTP(tw, r)
	return upstreamErr
}

// director builds the net/http/httputil.ReverseProxy Director that rewrites
// the outgoing request's method, path, query, and Host header to target the
// resolved backend.
func director(info *classify.RequestInfo) func(*http.Request) {
	return func(req *http.Request) {
		req.URL.Scheme = info.BackendURL.Scheme
		req.URL.Host = info.BackendURL.Host
		req.URL.Path = info.BackendURL.Path
		req.URL.RawQuery = info.BackendURL.RawQuery
		if info.TargetMethod != "" {
			req.Method = info.TargetMethod
		}
		// A Host header ending in the backend's host is cleared to avoid
		// self-redirect loops when gateway and backend share a suffix;
		// otherwise it is preserved byte-for-byte.
		if req.Host != "" && strings.HasSuffix(req.Host, info.BackendURL.Host) {
			req.Host = ""
		}
	}
}

// trackingWriter records whether a response has started, so the
// ErrorHandler above knows whether it is still safe to write a status code.
type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *trackingWriter) WriteHeader(code int) {
	if t.wroteHeader {
		return
	}
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}
