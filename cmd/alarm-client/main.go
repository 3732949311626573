// Command alarm-client sends commands to a running alarm scheduler.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/oshokin/alarm-scheduler/cmd/alarm-client/cmd"
)

func main() {
	cmd.Execute()
}
