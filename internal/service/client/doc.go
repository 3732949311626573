// Package client implements the alarm-client command.
//
// The command connects to a running alarm scheduler over gRPC and either
// submits a single command line or runs an interactive console against it.
package client
