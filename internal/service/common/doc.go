// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper for the alarm scheduler with
// timeouts and a helper that identifies the calling user and host.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
