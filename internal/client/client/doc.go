// Package client contains the client-side transport for the Echo auth API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) covering
//     Register, Login, Refresh, Logout, Me and Ping.
//  2. A gRPC implementation (see GRPCClient) that keeps the current token
//     pair in memory, attaches the access token to protected calls and
//     refreshes it once when the server reports it as expired.
//
// # Error Handling
//
// gRPC status codes are mapped to sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrForbidden,
// ErrConflict, ErrInvalidArgument and ErrNotLoggedIn.
//
// GRPCClient is safe for concurrent use. All operations accept a
// context.Context and honor cancellation.
package client
