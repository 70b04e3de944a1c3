package codec

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// DNS/connection failure tokens recognized by StatusForCode.
const (
	CodeNotFound    = "NOTFOUND"
	CodeRefused     = "REFUSED"
	CodeCancelled   = "CANCELLED"
	CodeConnRefused = "CONNREFUSED"
)

// StatusForCode maps a name-resolution/connection error token to the HTTP
// status the gateway should surface for it. Unknown or empty tokens map to
// 500, never to an arbitrary or zero status.
func StatusForCode(code string) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeRefused, CodeCancelled, CodeConnRefused:
		return 403
	default:
		return 500
	}
}

// UpstreamError pairs a mapped HTTP status with the original failure token,
// so diagnostics keep both the HTTP-facing code and the raw cause.
type UpstreamError struct {
	Err          error
	OriginalCode string
	StatusCode   int
}

// NewUpstreamError maps originalCode through StatusForCode and wraps err.
func NewUpstreamError(err error, originalCode string) *UpstreamError {
	return &UpstreamError{
		Err:          err,
		OriginalCode: originalCode,
		StatusCode:   StatusForCode(originalCode),
	}
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return "upstream error: " + e.OriginalCode
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ClassifyNetError maps a raw dial/transport failure to one of the DNS or
// connection tokens StatusForCode understands. An error that doesn't match
// any recognized cause returns "", which StatusForCode maps to 500.
func ClassifyNetError(err error) string {
	if err == nil {
		return ""
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return CodeNotFound
	}
	if errors.Is(err, context.Canceled) {
		return CodeCancelled
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return CodeConnRefused
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && strings.Contains(opErr.Err.Error(), "refused") {
		return CodeRefused
	}
	return ""
}
