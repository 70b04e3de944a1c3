// Package gateway composes the hostname codec, backend parser, request
// classifier, HTTP proxy engine, and websocket tunnel engine into a single
// gin.HandlerFunc.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/meshbridge/gatewaycore/internal/backend"
	"github.com/meshbridge/gatewaycore/internal/classify"
	"github.com/meshbridge/gatewaycore/internal/codec"
	"github.com/meshbridge/gatewaycore/internal/gwconfig"
	"github.com/meshbridge/gatewaycore/internal/gwlog"
	"github.com/meshbridge/gatewaycore/internal/proxy"
	"github.com/meshbridge/gatewaycore/internal/tunnel"
)

// FilterResult is the explicit three-way outcome of a Filter: it either
// vetoes interception, handles the response itself, or lets the
// orchestrator proceed to Phase 2.
type FilterResult int

const (
	Proceed FilterResult = iota
	Veto
	Consumed
)

// Filter inspects the Phase1 RequestInfo before Phase2 runs. It may write
// directly to c (Consumed), or simply decide whether to continue (Veto /
// Proceed).
type Filter func(c *gin.Context, info *classify.RequestInfo) FilterResult

// Gateway is the Middleware Orchestrator. Construct one with New and mount
// its Handler() once per listening route.
type Gateway struct {
	cfg         *gwconfig.GatewayConfig
	classifyCfg classify.Config
	parser      *backend.Parser
	filter      Filter
	emitter     *gwlog.Emitter
	httpProxy   *proxy.HTTPProxy
	wsTunnel    *tunnel.WebSocketTunnel
	mountPrefix string
}

// Option customizes a Gateway at construction time.
type Option func(*Gateway)

// WithFilter installs an optional filter that runs between Phase1 and
// Phase2 classification.
func WithFilter(f Filter) Option {
	return func(g *Gateway) { g.filter = f }
}

// WithMountPrefix sets the routing prefix DefaultParseURLFromRoute strips
// before treating the remainder as "scheme://host/path".
func WithMountPrefix(prefix string) Option {
	return func(g *Gateway) { g.mountPrefix = prefix }
}

// WithTransport overrides the HTTP Proxy Engine's round tripper (tests use
// this to point at an httptest.Server without touching DNS).
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) { g.httpProxy = proxy.NewHTTPProxy(g.emitter, rt) }
}

// parserArg accepts either a *backend.Parser or a bare URLFromRouteFunc,
// which New lifts into one.
type parserArg interface{}

// New builds a Gateway. parserOrFn is either a *backend.Parser or a
// backend.URLFromRouteFunc (a plain func(backend.Options, *backend.Request)
// (*url.URL, error)); a nil parserOrFn yields a Parser with every slot at
// its default. Any other argument type panics.
func New(cfg *gwconfig.GatewayConfig, parserOrFn parserArg, opts ...Option) *Gateway {
	var p *backend.Parser
	switch v := parserOrFn.(type) {
	case *backend.Parser:
		p = v
	case backend.URLFromRouteFunc:
		p = backend.FromRouteFunc(v)
	case func(backend.Options, *backend.Request) (*url.URL, error):
		p = backend.FromRouteFunc(v)
	case nil:
		p = &backend.Parser{}
	default:
		panic(fmt.Sprintf("gateway: unsupported parser argument type %T", parserOrFn))
	}

	emitter := gwlog.NewEmitter(cfg.Logger)
	g := &Gateway{
		cfg:         cfg,
		classifyCfg: cfg.ClassifyConfig(),
		parser:      p.Normalized(),
		emitter:     emitter,
		httpProxy:   proxy.NewHTTPProxy(emitter, nil),
		wsTunnel:    tunnel.NewWebSocketTunnel(emitter),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns the gin.HandlerFunc implementing the gateway's request
// state machine: ENTRY -> CLASSIFIED -> FILTERED -> {PASS|REDIRECT|PROXY|WEBSOCKET|ERROR}.
func (g *Gateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := gwlog.NewRequestID()
		req := g.toParserRequest(c.Request)

		// ENTRY -> CLASSIFIED
		info, err := classify.Phase1(g.classifyCfg, g.parser, req)
		if err != nil {
			g.fail(c, requestID, "classification error", err)
			return
		}

		// CLASSIFIED -> FILTERED
		if g.filter != nil {
			switch g.filter(c, info) {
			case Veto:
				c.Next()
				return
			case Consumed:
				c.Abort()
				return
			case Proceed:
				// fall through to Phase 2
			}
		}

		if err := classify.Phase2(g.classifyCfg, g.parser, req, info); err != nil {
			g.fail(c, requestID, "classification error", err)
			return
		}

		fields := map[string]any{"request_id": requestID, "target_id": info.TargetID}

		if !info.IsGatewayIntercept {
			c.Next()
			return
		}

		switch {
		case info.IsWebsocketRequest:
			g.dispatchWebSocket(c, info, requestID, fields)
		case !info.IsGatewayHost && g.cfg.GatewayHost != "":
			// Redirecting to a subdomain-encoded host only makes sense
			// once there's a stable, operator-chosen gateway host to
			// redirect to.
			g.dispatchRedirect(c, info)
		default:
			g.dispatchProxy(c, info, requestID, fields)
		}
	}
}

func (g *Gateway) toParserRequest(r *http.Request) *backend.Request {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return &backend.Request{
		Raw:         r,
		Scheme:      scheme,
		OriginalURL: r.URL.RequestURI(),
		MountPrefix: g.mountPrefix,
	}
}

func (g *Gateway) dispatchProxy(c *gin.Context, info *classify.RequestInfo, requestID string, fields map[string]any) {
	if err := g.httpProxy.Forward(c.Writer, c.Request, info, requestID); err != nil {
		// Forward's ReverseProxy ErrorHandler already wrote the mapped
		// status code to c.Writer; just record the error for gin's own
		// logging/recovery chain.
		var ue *codec.UpstreamError
		if errors.As(err, &ue) {
			c.Error(ue)
		} else {
			g.emitter.EmitError(err, fields)
		}
	}
	c.Abort()
}

func (g *Gateway) dispatchWebSocket(c *gin.Context, info *classify.RequestInfo, requestID string, fields map[string]any) {
	if err := g.wsTunnel.Serve(c.Writer, c.Request, info, requestID); err != nil {
		g.emitter.EmitError(err, fields)
	}
	c.Abort()
}

func (g *Gateway) dispatchRedirect(c *gin.Context, info *classify.RequestInfo) {
	encoded := codec.Encode(info.TargetID)
	target := fmt.Sprintf("%s://%s.%s%s", info.BackendURL.Scheme, encoded, info.GatewayDomainPostfix, info.BackendURL.Path)
	if info.BackendURL.RawQuery != "" {
		target += "?" + info.BackendURL.RawQuery
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

func (g *Gateway) fail(c *gin.Context, requestID, msg string, err error) {
	g.emitter.EmitError(err, map[string]any{"request_id": requestID, "stage": msg})
	c.Error(err)
	c.AbortWithStatus(http.StatusInternalServerError)
}
