package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	demobackend "github.com/meshbridge/gatewaycore/cmd/gateway-demo/backend"
	"github.com/meshbridge/gatewaycore/internal/backend"
	"github.com/meshbridge/gatewaycore/internal/gateway"
	"github.com/meshbridge/gatewaycore/internal/gwconfig"
)

var (
	runAddr            string
	runGatewayHost     string
	runGatewaySubdom   string
	runForceHTTP       bool
	runHTTPBackendAddr string
	runWSBackendAddr   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gateway and its two sample backends",
	RunE:  runGateway,
}

func init() {
	runCmd.Flags().StringVar(&runAddr, "addr", ":8080", "address the gateway listens on")
	runCmd.Flags().StringVar(&runGatewayHost, "gateway-host", "", "explicit gateway authority (auto-derived from Host if empty)")
	runCmd.Flags().StringVar(&runGatewaySubdom, "gateway-subdomain", "", "DNS label separating an encoded target from the gateway host")
	runCmd.Flags().BoolVar(&runForceHTTP, "force-http", true, "downgrade https/wss to http/ws before forwarding")
	runCmd.Flags().StringVar(&runHTTPBackendAddr, "http-backend-addr", ":9001", "address the sample HTTP backend listens on")
	runCmd.Flags().StringVar(&runWSBackendAddr, "ws-backend-addr", ":9002", "address the sample WebSocket backend listens on")
	rootCmd.AddCommand(runCmd)
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := gwconfig.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if runGatewayHost != "" {
		cfg.GatewayHost = runGatewayHost
	}
	if runGatewaySubdom != "" {
		cfg.GatewaySubdomain = runGatewaySubdom
	}
	if cmd.Flags().Changed("force-http") {
		cfg.ForceHTTP = runForceHTTP
	}

	go func() {
		slog.Info("sample http backend listening", "addr", runHTTPBackendAddr)
		if err := http.ListenAndServe(runHTTPBackendAddr, demobackend.NewHTTPBackend()); err != nil {
			slog.Error("http backend exited", "error", err)
		}
	}()
	go func() {
		slog.Info("sample websocket backend listening", "addr", runWSBackendAddr)
		if err := http.ListenAndServe(runWSBackendAddr, demobackend.NewWebSocketBackend()); err != nil {
			slog.Error("websocket backend exited", "error", err)
		}
	}()

	parser := backend.FromRouteFunc(routeParser(runHTTPBackendAddr, runWSBackendAddr))
	gw := gateway.New(cfg, parser, gateway.WithMountPrefix(""))

	r := gin.New()
	r.Use(gin.Recovery())
	r.NoRoute(gw.Handler(), func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	slog.Info("gateway listening", "addr", runAddr)
	return r.Run(runAddr)
}

// routeParser dispatches "/backend/..." to the sample HTTP backend and
// "/backend-ws/..." to the sample websocket backend: the simplest route
// resolution strategy a deployment can supply.
func routeParser(httpAddr, wsAddr string) backend.URLFromRouteFunc {
	return func(opts backend.Options, req *backend.Request) (*url.URL, error) {
		switch {
		case strings.HasPrefix(req.OriginalURL, "/backend-ws"):
			remainder := strings.TrimPrefix(req.OriginalURL, "/backend-ws")
			return url.Parse("ws://" + wsAddr + remainder)
		case strings.HasPrefix(req.OriginalURL, "/backend"):
			remainder := strings.TrimPrefix(req.OriginalURL, "/backend")
			return url.Parse("http://" + httpAddr + remainder)
		default:
			return nil, nil
		}
	}
}
