// Package alarm implements the gRPC transport for the alarm scheduler.
//
// The service is registered from a hand-written descriptor whose messages are
// google.protobuf.Struct values, so no generated code is needed on either side.
// The package also holds the codec shared by the server and the client.
package alarm
