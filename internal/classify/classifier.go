// Package classify implements the request-classification state machine: it
// populates a RequestInfo record and decides whether a request should be
// intercepted, and if so whether it is host-mode, route-mode, or a websocket
// upgrade.
package classify

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/meshbridge/gatewaycore/internal/backend"
	"github.com/meshbridge/gatewaycore/internal/codec"
)

// DefaultGatewaySubdomain is used when GatewayConfig.GatewaySubdomain is
// unset.
const DefaultGatewaySubdomain = "gateway-proxy"

// Config is the slice of GatewayConfig the classifier needs. It is
// duplicated from gwconfig.GatewayConfig at the gateway package boundary to
// keep this package free of a dependency on the config/CLI stack.
type Config struct {
	GatewayHost      string
	GatewaySubdomain string
	ForceProtocol    string
	ForceHTTP        bool
}

func (c Config) subdomain() string {
	if c.GatewaySubdomain == "" {
		return DefaultGatewaySubdomain
	}
	return c.GatewaySubdomain
}

func (c Config) parserOptions() backend.Options {
	return backend.Options{ForceProtocol: c.ForceProtocol, ForceHTTP: c.ForceHTTP}
}

// RequestInfo is the per-request scratch record populated across Phase1 and
// Phase2.
type RequestInfo struct {
	IsGatewayIntercept   bool
	IsGatewayHost        bool
	IsWebsocketRequest   bool
	TargetID             string
	GatewayDomainPostfix string
	TargetMethod         string
	BackendURL           *url.URL
}

// Phase1 always runs, before any user-supplied filter. It decides whether
// the request landed on the encoded gateway host and, if so, resolves the
// backend URL from the decoded target id.
func Phase1(cfg Config, parser *backend.Parser, req *backend.Request) (*RequestInfo, error) {
	subdomain := cfg.subdomain()
	hostHeader := req.Raw.Host

	gatewayHost := cfg.GatewayHost
	if gatewayHost == "" {
		gatewayHost = deriveGatewayHost(hostHeader, subdomain)
	}

	postfix := subdomain + "." + gatewayHost
	info := &RequestInfo{GatewayDomainPostfix: postfix}
	info.IsGatewayHost = strings.HasSuffix(hostHeader, postfix)
	info.IsWebsocketRequest = isWebsocketRequest(req.Raw.Header)

	if info.IsGatewayHost {
		label := strings.TrimSuffix(strings.TrimSuffix(hostHeader, postfix), ".")
		info.TargetID = codec.Decode(label)

		u, err := parser.ParseURLFromID(cfg.parserOptions(), req, info.TargetID)
		if err != nil {
			return nil, err
		}
		info.BackendURL = u
	}

	return info, nil
}

// Phase2 runs only when no filter vetoed or short-circuited the request. It
// finalizes the intercept decision.
func Phase2(cfg Config, parser *backend.Parser, req *backend.Request, info *RequestInfo) error {
	info.IsGatewayIntercept = true

	if !info.IsGatewayHost {
		u, err := parser.ParseURLFromRoute(cfg.parserOptions(), req)
		if err != nil {
			return err
		}
		info.BackendURL = u
	}

	if info.BackendURL == nil {
		info.IsGatewayIntercept = false
		return nil
	}

	if info.TargetID == "" {
		info.TargetID = info.BackendURL.Host
	}
	info.TargetMethod = parser.ParseMethod(cfg.parserOptions(), req)
	info.BackendURL.Scheme = parser.ParseProtocol(cfg.parserOptions(), req)

	if info.IsWebsocketRequest {
		info.BackendURL.Path = strings.TrimSuffix(info.BackendURL.Path, "/.websocket")
	}

	return nil
}

// deriveGatewayHost finds the last occurrence of ".<subdomain>." in host;
// the remainder after it is the gateway host. If not found, the whole host
// is the gateway host.
func deriveGatewayHost(host, subdomain string) string {
	marker := "." + subdomain + "."
	idx := strings.LastIndex(host, marker)
	if idx == -1 {
		return host
	}
	return host[idx+len(marker):]
}

func isWebsocketRequest(h http.Header) bool {
	if h.Get("Sec-WebSocket-Protocol") != "" {
		return true
	}
	return strings.EqualFold(h.Get("Upgrade"), "websocket")
}
