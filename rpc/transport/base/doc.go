// Package base provides the socket independent part of the RESP transport. The
// tcp and unix packages only add a connector that creates listeners and
// connections.
//
// Server:
//
// Every accepted connection is served by one goroutine that
//  1. reads into a pooled buffer and appends to the connection's pending data,
//  2. decodes every complete frame with the configured decoder (resp.Decode or
//     batch.Decode) and runs the handler for each of them,
//  3. writes all replies of one read with a single write, in request order.
//
// Incomplete frames stay pending until more data arrives. Malformed input, or
// more pending data than ServerConfig.MaxPendingKB allows, is answered with
// "-ERR Protocol error" and the connection is closed. Command level errors are
// the handler's business and never close a connection.
//
// Each connection gets a ULID as id (used in logs), optionally a token bucket
// rate limiter (golang.org/x/time/rate) and an idle read timeout. Open
// connections are tracked in an xsync.MapOf so that a cancelled context stops
// the accept loop and wakes up all blocked reads; Serve returns once every
// connection has finished.
//
// Client:
//
// NewClientConn wraps a net.Conn. Requests are written with one write per
// pipeline and replies are decoded incrementally. After any error the
// connection reports itself unhealthy and should be discarded.
package base
