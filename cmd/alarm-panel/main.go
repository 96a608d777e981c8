// Command alarm-panel bridges a Yale Smart Alarm panel to Home Assistant and gRPC clients.
package main

import "github.com/oshokin/alarm-panel/cmd/alarm-panel/cmd"

func main() {
	cmd.Execute()
}
