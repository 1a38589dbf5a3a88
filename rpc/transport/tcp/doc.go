// Package tcp implements the RESP transport over TCP sockets. It provides the
// TCP connectors for the base package, which holds the actual server loop and
// client connection.
//
// Server connections get TCP_NODELAY (replies are already batched per read),
// keep-alive and a kernel read buffer matching ServerConfig.ReadBufferKB.
package tcp
