package gwconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.Equal(t, "gateway-proxy", cfg.GatewaySubdomain)
	require.True(t, cfg.ForceHTTP)
	require.True(t, cfg.ForceWebsocketProtocol)
	require.NotNil(t, cfg.Logger)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	contents := "gateway_host: example.com\ngateway_subdomain: gw\nforce_http: false\nsocket_ports:\n  - 2222\n  - 2223\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "example.com", cfg.GatewayHost)
	require.Equal(t, "gw", cfg.GatewaySubdomain)
	require.False(t, cfg.ForceHTTP)
	require.Equal(t, []int{2222, 2223}, cfg.SocketPorts)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "gateway-proxy", cfg.GatewaySubdomain)
	require.True(t, cfg.ForceHTTP)
}

func TestClassifyConfigProjection(t *testing.T) {
	cfg := Default()
	cfg.GatewayHost = "example.com"
	cc := cfg.ClassifyConfig()
	require.Equal(t, "example.com", cc.GatewayHost)
	require.Equal(t, "gateway-proxy", cc.GatewaySubdomain)
}
