// Package transport defines the interfaces between the RESP server or client and
// the socket layer.
//
// The server side (IRPCServerTransport) accepts connections, decodes pipelined
// RESP requests from each connection and hands every request frame to a
// ServerHandleFunc. The client side (IRPCClientTransport) dials connections that
// send request frames and decode the replies.
//
// Implementations live in the sub packages:
//   - base: socket independent server loop and client connection
//   - tcp:  TCP sockets
//   - unix: Unix domain sockets
package transport
