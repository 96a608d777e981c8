// Package common holds helpers shared by the command-line services: a gRPC
// client with call timeouts and detection of the calling host and user.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
