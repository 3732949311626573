// Package version reports which alarm-scheduler build is running.
//
// Version, Commit and BuildTime are set with -ldflags "-X ..." when release
// binaries are built. Both alarm-scheduler and alarm-client expose them
// through a version subcommand.
package version
