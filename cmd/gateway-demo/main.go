// Command gateway-demo runs the reverse HTTP/WebSocket gateway core in
// front of two sample backends, driven by a cobra/viper CLI.
package main

import "github.com/meshbridge/gatewaycore/cmd/gateway-demo/cmd"

func main() {
	cmd.Execute()
}
