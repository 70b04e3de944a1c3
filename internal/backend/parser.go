// Package backend implements the pluggable backend-resolution strategy: the
// four parser slots that turn an incoming request into an upstream URL,
// protocol and method.
package backend

import (
	"net/http"
	"net/url"
	"strings"
)

// Options carries the GatewayConfig fields the default parser
// implementations need (the parser package has no dependency on the
// gateway's own config type to avoid an import cycle).
type Options struct {
	ForceProtocol string
	ForceHTTP     bool
}

// Request is the parser-facing view of an incoming HTTP request. The
// gateway builds one of these from the framework's request object so the
// parser never needs to know which web framework is in front of it.
type Request struct {
	Raw         *http.Request
	Scheme      string // e.g. "http" or "https", as seen by the gateway
	OriginalURL string // full path + query as received, before any rewrite
	MountPrefix string // routing prefix the host framework mounted the gateway under
}

type (
	URLFromIDFunc    func(opts Options, req *Request, targetID string) (*url.URL, error)
	URLFromRouteFunc func(opts Options, req *Request) (*url.URL, error)
	ProtocolFunc     func(opts Options, req *Request) string
	MethodFunc       func(opts Options, req *Request) string
)

// Parser bundles the four resolution strategies. A zero-value field falls
// back to the matching Default* function. A Parser is constructed once per
// middleware and is never mutated afterwards.
type Parser struct {
	ParseURLFromID    URLFromIDFunc
	ParseURLFromRoute URLFromRouteFunc
	ParseProtocol     ProtocolFunc
	ParseMethod       MethodFunc
}

// FromRouteFunc lifts a bare route-resolution function into a Parser whose
// other three slots use their defaults, so callers can pass either a
// function or a fully populated Parser wherever one is expected.
func FromRouteFunc(fn URLFromRouteFunc) *Parser {
	return &Parser{ParseURLFromRoute: fn}
}

// Normalized returns a copy of p with every nil slot filled with its
// default implementation. Callers normalize once at middleware construction
// time and reuse the result for every request.
func (p *Parser) Normalized() *Parser {
	out := *p
	if out.ParseURLFromID == nil {
		out.ParseURLFromID = DefaultParseURLFromID
	}
	if out.ParseURLFromRoute == nil {
		out.ParseURLFromRoute = DefaultParseURLFromRoute
	}
	if out.ParseProtocol == nil {
		out.ParseProtocol = DefaultParseProtocol
	}
	if out.ParseMethod == nil {
		out.ParseMethod = DefaultParseMethod
	}
	return &out
}

// DefaultParseURLFromID builds "<scheme>://<targetID><originalURL>", used
// when the request arrived on a subdomain-encoded host.
func DefaultParseURLFromID(opts Options, req *Request, targetID string) (*url.URL, error) {
	return url.Parse(req.Scheme + "://" + targetID + req.OriginalURL)
}

// DefaultParseURLFromRoute strips the configured mount prefix (and the slash
// that follows it) from the original URL and treats the remainder as
// "<scheme>://<remainder>".
// Returning a nil URL (with a nil error) signals "do not intercept".
func DefaultParseURLFromRoute(opts Options, req *Request) (*url.URL, error) {
	remainder := strings.TrimPrefix(req.OriginalURL, req.MountPrefix)
	remainder = strings.TrimPrefix(remainder, "/")
	if remainder == "" {
		return nil, nil
	}
	return url.Parse(req.Scheme + "://" + remainder)
}

// DefaultParseProtocol returns the request scheme, overridden by
// Options.ForceProtocol when set, then downgraded https->http / wss->ws
// when Options.ForceHTTP is true.
func DefaultParseProtocol(opts Options, req *Request) string {
	scheme := req.Scheme
	if opts.ForceProtocol != "" {
		scheme = opts.ForceProtocol
	}
	if opts.ForceHTTP {
		scheme = downgrade(scheme)
	}
	return scheme
}

func downgrade(scheme string) string {
	switch scheme {
	case "https":
		return "http"
	case "wss":
		return "ws"
	default:
		return scheme
	}
}

// DefaultParseMethod returns the request's HTTP method unchanged.
func DefaultParseMethod(opts Options, req *Request) string {
	return req.Raw.Method
}
