package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ValentinKolb/rKV/lib/backend"
	"github.com/ValentinKolb/rKV/lib/command"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// serverMetrics collects runtime metrics of one server instance. It implements
// transport.IConnObserver.
type serverMetrics struct {
	set *metrics.Set

	commands       map[string]*metrics.Counter // by command name
	commandErrors  *metrics.Counter
	protocolErrors *metrics.Counter
	duration       *metrics.Histogram

	active *xsync.Counter // open connections
}

// newServerMetrics registers all metrics in a new set. Backend key counts are
// read from b whenever the set is scraped.
func newServerMetrics(b backend.IBackend) *serverMetrics {
	set := metrics.NewSet()
	m := &serverMetrics{
		set:            set,
		commands:       make(map[string]*metrics.Counter),
		commandErrors:  set.NewCounter("rkv_command_errors_total"),
		protocolErrors: set.NewCounter("rkv_protocol_errors_total"),
		duration:       set.NewHistogram("rkv_command_duration_seconds"),
		active:         xsync.NewCounter(),
	}

	// the command table is fixed, so the counters can be created up front
	for _, name := range append(command.Names(), command.Unrecognized{}.Name()) {
		m.commands[name] = set.NewCounter(fmt.Sprintf(`rkv_commands_total{cmd=%q}`, name))
	}

	set.NewGauge("rkv_connections_active", func() float64 {
		return float64(m.active.Value())
	})
	set.NewGauge("rkv_backend_shards", func() float64 {
		return float64(b.Info().NumShards)
	})
	for _, table := range []string{"strings", "hashes", "sets"} {
		table := table
		set.NewGauge(fmt.Sprintf(`rkv_backend_keys{table=%q}`, table), func() float64 {
			info := b.Info()
			switch table {
			case "strings":
				return float64(info.Strings)
			case "hashes":
				return float64(info.Hashes)
			default:
				return float64(info.Sets)
			}
		})
	}
	return m
}

// observeCommand counts one executed command
func (m *serverMetrics) observeCommand(name string, start time.Time) {
	if c, ok := m.commands[name]; ok {
		c.Inc()
	}
	m.duration.UpdateDuration(start)
}

// observeCommandError counts one request that could not be parsed into a command
func (m *serverMetrics) observeCommandError() {
	m.commandErrors.Inc()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnObserver)
// --------------------------------------------------------------------------

func (m *serverMetrics) ConnOpened(string) {
	m.active.Inc()
}

func (m *serverMetrics) ConnClosed(string) {
	m.active.Dec()
}

func (m *serverMetrics) ProtocolError(string, error) {
	m.protocolErrors.Inc()
}

// --------------------------------------------------------------------------
// HTTP Endpoint
// --------------------------------------------------------------------------

// handler returns the http handler for GET /metrics
func (m *serverMetrics) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m.set.WritePrometheus(w)
	})
	return mux
}

// serveHTTP serves the metrics endpoint until ctx is cancelled
func (m *serverMetrics) serveHTTP(ctx context.Context, endpoint string) error {
	srv := &http.Server{
		Addr:              endpoint,
		Handler:           m.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint failed: %w", err)
	}
	return nil
}
