// Package cmd provides the gateway-demo CLI commands, wiring spf13/cobra
// flags onto internal/gwconfig's loader.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gateway-demo",
	Short: "Reverse HTTP/WebSocket gateway demo",
	Long: `gateway-demo runs the reverse HTTP/WebSocket gateway in front of two
sample backends (a plain HTTP service and a WebSocket echo service) so the
Middleware Orchestrator, HTTP Proxy Engine, and WebSocket Tunnel Engine can
be exercised end to end.

Configuration is loaded from a YAML file (--config) layered under
environment variables prefixed GATEWAY_.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
}
