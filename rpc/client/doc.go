// Package client implements a RESP client for rKV servers. Requests are sent
// over a pool of connections (github.com/jolestar/go-commons-pool/v2) opened
// with a client transport from rpc/transport.
//
// Key Components:
//
//   - NewRESPClient: Factory function that creates the client. It opens one
//     connection right away so an unreachable server is reported early.
//
//   - Do / Pipeline / Command: send raw request frames and return the raw
//     reply frames. Pipeline writes all requests at once over one connection.
//
//   - Get, Set, HGet, HSet, HMGet, HGetAll, SIsMember, AddMember, Echo: typed
//     wrappers that convert the replies. Error replies are returned as errors
//     wrapping ErrServer.
//
// A connection that failed (I/O error, malformed reply, timeout) is removed
// from the pool; the next request opens a new one. At most
// ClientConfig.PoolSize connections are open at a time, further callers wait
// until a connection is returned or their context ends.
//
// Usage Example:
//
//	config := common.DefaultClientConfig()
//	config.Endpoint = "localhost:6379"
//
//	c, err := client.NewRESPClient(config, tcp.NewTCPClientTransport())
//	if err != nil {
//	  log.Fatalf("Failed to connect: %v", err)
//	}
//	defer c.Close()
//
//	if err := c.HSet(ctx, "map", "hello", "world"); err != nil {
//	  log.Fatalf("HSET failed: %v", err)
//	}
//	fields, err := c.HGetAll(ctx, "map", true)
package client
