// Package gwconfig loads the process-wide, immutable GatewayConfig from
// YAML/env via spf13/viper.
package gwconfig

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/meshbridge/gatewaycore/internal/classify"
)

// GatewayConfig holds the gateway's tunable settings.
type GatewayConfig struct {
	GatewayHost            string `mapstructure:"gateway_host"`
	GatewaySubdomain       string `mapstructure:"gateway_subdomain"`
	ForceProtocol          string `mapstructure:"force_protocol"`
	ForceHTTP              bool   `mapstructure:"force_http"`
	ForceWebsocketProtocol bool   `mapstructure:"force_websocket_protocol"`
	SocketPorts            []int  `mapstructure:"socket_ports"`
	LogErrorsToConsole     bool   `mapstructure:"log_errors_to_console"`

	// Logger is not part of the serialized config; callers set it after
	// loading (or Default() supplies slog.Default()).
	Logger *slog.Logger `mapstructure:"-"`
}

// Default returns a GatewayConfig with its documented defaults:
// gateway_subdomain "gateway-proxy", force_http true,
// force_websocket_protocol true.
func Default() *GatewayConfig {
	return &GatewayConfig{
		GatewaySubdomain:       classify.DefaultGatewaySubdomain,
		ForceHTTP:              true,
		ForceWebsocketProtocol: true,
		Logger:                 slog.Default(),
	}
}

// Load reads a YAML config file at path (if non-empty) and environment
// variables prefixed GATEWAY_, layering them over Default().
func Load(path string) (*GatewayConfig, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows, so every key gets a
	// default for its GATEWAY_ environment variable to be picked up.
	v.SetDefault("gateway_host", cfg.GatewayHost)
	v.SetDefault("force_protocol", cfg.ForceProtocol)
	v.SetDefault("socket_ports", cfg.SocketPorts)
	v.SetDefault("log_errors_to_console", cfg.LogErrorsToConsole)
	v.SetDefault("gateway_subdomain", cfg.GatewaySubdomain)
	v.SetDefault("force_http", cfg.ForceHTTP)
	v.SetDefault("force_websocket_protocol", cfg.ForceWebsocketProtocol)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("gwconfig: reading %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("gwconfig: unmarshal: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg, nil
}

// ClassifyConfig projects the fields internal/classify needs.
func (c *GatewayConfig) ClassifyConfig() classify.Config {
	return classify.Config{
		GatewayHost:      c.GatewayHost,
		GatewaySubdomain: c.GatewaySubdomain,
		ForceProtocol:    c.ForceProtocol,
		ForceHTTP:        c.ForceHTTP,
	}
}
