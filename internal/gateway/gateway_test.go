package gateway

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/meshbridge/gatewaycore/internal/backend"
	"github.com/meshbridge/gatewaycore/internal/classify"
	"github.com/meshbridge/gatewaycore/internal/codec"
	"github.com/meshbridge/gatewaycore/internal/gwconfig"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(gw *Gateway) *gin.Engine {
	r := gin.New()
	r.NoRoute(gw.Handler(), func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return r
}

// TestRouteBasedProxy is spec.md §8 scenario 1: the parser resolves a
// backend URL for a route-mode request and the gateway relays it unchanged.
func TestRouteBasedProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/foo", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()
	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	parser := backend.FromRouteFunc(func(opts backend.Options, req *backend.Request) (*url.URL, error) {
		return url.Parse("http://" + upstreamURL.Host + "/foo")
	})

	cfg := gwconfig.Default()
	gw := New(cfg, parser, WithMountPrefix("/backend"))
	router := newTestRouter(gw)

	req := httptest.NewRequest(http.MethodGet, "/backend/foo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

// TestCatchThrough is spec.md §8 scenario 2: a nil route-parse result must
// not touch the network and must fall through to the host framework's
// NoRoute chain.
func TestCatchThrough(t *testing.T) {
	parser := backend.FromRouteFunc(func(opts backend.Options, req *backend.Request) (*url.URL, error) {
		return nil, nil
	})
	cfg := gwconfig.Default()
	gw := New(cfg, parser)
	router := newTestRouter(gw)

	req := httptest.NewRequest(http.MethodGet, "/other", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestSubdomainRedirect is spec.md §8 scenario 3.
func TestSubdomainRedirect(t *testing.T) {
	parser := backend.FromRouteFunc(func(opts backend.Options, req *backend.Request) (*url.URL, error) {
		return url.Parse("http://127.0.0.1:3030/x")
	})
	cfg := gwconfig.Default()
	cfg.GatewaySubdomain = "gateway-proxy"
	cfg.GatewayHost = "example.com"
	gw := New(cfg, parser, WithMountPrefix("/backend"))
	router := newTestRouter(gw)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/backend/x", nil)
	req.Host = "example.com"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "http://127.0.0.1.e058.3030.gateway-proxy.example.com/x", rec.Header().Get("Location"))
}

// TestHostModeProxy is spec.md §8 scenario 4.
func TestHostModeProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/x", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()
	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	cfg := gwconfig.Default()
	cfg.GatewaySubdomain = "gateway-proxy"
	cfg.GatewayHost = "example.com"
	gw := New(cfg, &backend.Parser{}, WithTransport(http.DefaultTransport))
	router := newTestRouter(gw)

	encodedHost := codec.Encode(upstreamURL.Host) + ".gateway-proxy.example.com"
	req := httptest.NewRequest(http.MethodGet, "http://"+encodedHost+"/x", nil)
	req.Host = encodedHost
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

// TestFilterVeto confirms the tri-state Filter result lets a veto pass the
// request through untouched, per spec.md §4.8's FILTERED transition.
func TestFilterVeto(t *testing.T) {
	parser := backend.FromRouteFunc(func(opts backend.Options, req *backend.Request) (*url.URL, error) {
		t.Fatal("route parser must not run once the filter vetoes")
		return nil, nil
	})
	cfg := gwconfig.Default()
	vetoed := false
	gw := New(cfg, parser, WithFilter(func(c *gin.Context, info *classify.RequestInfo) FilterResult {
		vetoed = true
		return Veto
	}))
	router := newTestRouter(gw)

	req := httptest.NewRequest(http.MethodGet, "/backend/foo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.True(t, vetoed)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestFilterConsumed confirms a Consumed filter's own response is left
// untouched by the orchestrator.
func TestFilterConsumed(t *testing.T) {
	parser := backend.FromRouteFunc(func(opts backend.Options, req *backend.Request) (*url.URL, error) {
		t.Fatal("route parser must not run once the filter consumes the response")
		return nil, nil
	})
	cfg := gwconfig.Default()
	gw := New(cfg, parser, WithFilter(func(c *gin.Context, info *classify.RequestInfo) FilterResult {
		c.String(http.StatusTeapot, "consumed")
		return Consumed
	}))
	router := newTestRouter(gw)

	req := httptest.NewRequest(http.MethodGet, "/backend/foo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "consumed", rec.Body.String())
}
