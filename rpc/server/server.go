package server

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/rKV/lib/backend"
	"github.com/ValentinKolb/rKV/lib/command"
	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger of the server package
var Logger = logger.GetLogger("server")

// RESPServer wires a transport, the command parser and a backend
type RESPServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	parser    command.Parser
	backend   backend.IBackend
	metrics   *serverMetrics
}

// NewRESPServer creates a new server. The backend is created here and shared
// by all connections.
//
// Usage:
//
//	s := server.NewRESPServer(
//		config,
//		tcp.NewTCPServerTransport(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRESPServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
) *RESPServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	b := backend.NewBackend(&backend.Options{NumShards: config.Shards})

	s := &RESPServer{
		config:    config,
		transport: transport,
		parser:    command.Parser{SortHGetAll: config.HGetAllSort},
		backend:   b,
		metrics:   newServerMetrics(b),
	}

	transport.RegisterHandler(s.Handle)
	transport.RegisterObserver(s.metrics)

	Logger.Infof("Created RESP Server")
	Logger.Infof(config.String())

	return s
}

// Backend returns the backend shared by all connections
func (s *RESPServer) Backend() backend.IBackend {
	return s.backend
}

// Handle parses one request frame, executes it and returns the reply. Requests
// that are not valid commands are answered with an error frame.
//
// Thread-safety: This method is thread-safe and is called concurrently by all
// connections.
func (s *RESPServer) Handle(req resp.Frame) resp.Frame {
	start := time.Now()

	cmd, err := s.parser.FromFrame(req)
	if err != nil {
		s.metrics.observeCommandError()
		Logger.Debugf("invalid command: %v", err)
		return command.ErrorFrame(err)
	}

	reply := cmd.Execute(s.backend)
	s.metrics.observeCommand(cmd.Name(), start)
	return reply
}

// Serve listens on the configured endpoint and serves requests until ctx is
// cancelled. If a metrics endpoint is configured it is served alongside.
func (s *RESPServer) Serve(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	s.startMetrics(ctx)
	return s.transport.Listen(ctx, s.config)
}

// ServeListener serves requests on an existing listener until ctx is cancelled
func (s *RESPServer) ServeListener(ctx context.Context, listener net.Listener) error {
	s.startMetrics(ctx)
	return s.transport.Serve(ctx, listener, s.config)
}

func (s *RESPServer) startMetrics(ctx context.Context) {
	if s.config.MetricsEndpoint == "" {
		return
	}
	go func() {
		if err := s.metrics.serveHTTP(ctx, s.config.MetricsEndpoint); err != nil {
			Logger.Errorf("%v", err)
		}
	}()
}
