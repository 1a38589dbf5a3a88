// Package rpc provides the network side of rKV: everything between a socket
// and the command layer in lib/command.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures for server and client, and logging.
//
//   - transport: Socket abstractions with a shared RESP stream loop (base) and
//     TCP and Unix socket implementations.
//
//   - server: The RESP server wiring transport, command parser, backend and
//     the metrics endpoint.
//
//   - client: A pooled RESP client with typed methods for every command.
package rpc
