// Command alarm-scheduler runs the alarm scheduler with an interactive console
// and an optional gRPC command port.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/oshokin/alarm-scheduler/cmd/alarm-scheduler/cmd"
)

func main() {
	cmd.Execute()
}
