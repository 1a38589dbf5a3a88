// Package unix implements the RESP transport over Unix domain sockets, for
// clients running on the same machine. The endpoint is the socket path; a stale
// socket file is removed before listening.
package unix
