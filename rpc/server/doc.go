// Package server implements the rKV RESP server. It connects a transport from
// rpc/transport with the command parser from lib/command and a shared backend
// from lib/backend.
//
// Every request frame handed over by the transport is parsed into a command
// and executed against the backend. Requests that are not valid commands are
// answered with an error frame ("-ERR ...") and the connection stays open.
// Protocol errors (malformed frames) are handled by the transport, which
// closes the connection.
//
// Key Components:
//
//   - NewRESPServer: creates the backend (ServerConfig.Shards shards) and
//     registers the request handler and the metrics observer at the transport.
//
//   - RESPServer.Serve: listens on ServerConfig.Endpoint until the context is
//     cancelled. ServeListener does the same for an existing listener.
//
//   - Metrics: when ServerConfig.MetricsEndpoint is set, GET /metrics on that
//     address serves the following metrics in Prometheus text format:
//     rkv_commands_total{cmd}, rkv_command_errors_total,
//     rkv_protocol_errors_total, rkv_connections_active,
//     rkv_command_duration_seconds, rkv_backend_shards and
//     rkv_backend_keys{table}.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Endpoint = "127.0.0.1:6379"
//
//	s := server.NewRESPServer(config, tcp.NewTCPServerTransport())
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Handle is safe for concurrent use. Serve and ServeListener should be
//	called only once per server.
package server
