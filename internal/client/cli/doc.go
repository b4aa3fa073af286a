// Package cli provides the interactive Echo command-line client.
//
// It wires configuration, the gRPC client and a small REPL. A background
// watcher pings the server and flips the prompt between online and offline.
//
// Commands: register, login, refresh, logout, me, ping, help, exit.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
