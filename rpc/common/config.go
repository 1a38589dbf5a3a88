package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Enumerations
// --------------------------------------------------------------------------

// TransportType selects the socket type
type TransportType string

const (
	TransportTCP  TransportType = "tcp"
	TransportUnix TransportType = "unix"
)

// DecoderType selects the RESP decoder used by the server
type DecoderType string

const (
	// DecoderIncremental decodes frame by frame from the connection buffer
	DecoderIncremental DecoderType = "incremental"
	// DecoderBatch probes the frame length first and parses whole frames
	DecoderBatch DecoderType = "batch"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of `rkv serve`
type ServerConfig struct {
	// Socket settings
	Endpoint  string
	Transport TransportType

	// Protocol settings
	Decoder     DecoderType
	HGetAllSort bool

	// Backend settings
	Shards int // <= 0 = one per CPU

	// Connection settings
	TimeoutSecond int64 // idle read timeout, 0 = none
	RateLimit     int   // commands per second per connection, 0 = unlimited
	ReadBufferKB  int
	MaxPendingKB  int // unparsed bytes per connection before it is closed

	// Monitoring
	MetricsEndpoint string // empty = disabled

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the configuration used when no flags are given
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:      "0.0.0.0:6379",
		Transport:     TransportTCP,
		Decoder:       DecoderIncremental,
		TimeoutSecond: 300,
		ReadBufferKB:  64,
		MaxPendingKB:  64 * 1024,
		LogLevel:      "info",
	}
}

// Timeout returns the idle timeout as duration
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// ReadBufferSize returns the read buffer size in bytes
func (c *ServerConfig) ReadBufferSize() int {
	return c.ReadBufferKB * 1024
}

// MaxPendingBytes returns the pending data limit in bytes
func (c *ServerConfig) MaxPendingBytes() int {
	return c.MaxPendingKB * 1024
}

// Validate checks all values and names the offending flag on error
func (c *ServerConfig) Validate() error {
	var errs []error

	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint must not be empty"))
	}
	if err := validateTransport(c.Transport); err != nil {
		errs = append(errs, err)
	}
	if c.Decoder != DecoderIncremental && c.Decoder != DecoderBatch {
		errs = append(errs, fmt.Errorf("decoder must be %q or %q, got %q", DecoderIncremental, DecoderBatch, c.Decoder))
	}
	if c.TimeoutSecond < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %d", c.TimeoutSecond))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate-limit must not be negative, got %d", c.RateLimit))
	}
	if c.ReadBufferKB <= 0 {
		errs = append(errs, fmt.Errorf("read-buffer must be positive, got %d", c.ReadBufferKB))
	}
	if c.MaxPendingKB < c.ReadBufferKB {
		errs = append(errs, fmt.Errorf("max-pending (%d KB) must be at least read-buffer (%d KB)", c.MaxPendingKB, c.ReadBufferKB))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log-level: %w", err))
	}

	return errors.Join(errs...)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatHelpers(&sb)

	addSection("RESP Server")
	addField("Endpoint", c.Endpoint)
	addField("Transport", string(c.Transport))
	addField("Decoder", string(c.Decoder))
	addField("HGETALL Sort", strconv.FormatBool(c.HGetAllSort))

	addSection("Backend")
	if c.Shards > 0 {
		addField("Shards", strconv.Itoa(c.Shards))
	} else {
		addField("Shards", "auto (one per CPU)")
	}

	addSection("Connections")
	addField("Idle Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.RateLimit > 0 {
		addField("Rate Limit", fmt.Sprintf("%d cmd/sec", c.RateLimit))
	} else {
		addField("Rate Limit", "unlimited")
	}
	addField("Read Buffer", fmt.Sprintf("%d KB", c.ReadBufferKB))
	addField("Max Pending", fmt.Sprintf("%d KB", c.MaxPendingKB))

	addSection("Monitoring")
	if c.MetricsEndpoint != "" {
		addField("Metrics", "http://"+c.MetricsEndpoint+"/metrics")
	} else {
		addField("Metrics", "disabled")
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of `rkv cli`
type ClientConfig struct {
	Endpoint      string
	Transport     TransportType
	TimeoutSecond int
	PoolSize      int
}

// DefaultClientConfig returns the configuration used when no flags are given
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:      "localhost:6379",
		Transport:     TransportTCP,
		TimeoutSecond: 5,
		PoolSize:      4,
	}
}

// Timeout returns the request timeout as duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// Validate checks all values and names the offending flag on error
func (c *ClientConfig) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint must not be empty"))
	}
	if err := validateTransport(c.Transport); err != nil {
		errs = append(errs, err)
	}
	if c.TimeoutSecond <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %d", c.TimeoutSecond))
	}
	if c.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("pool-size must be positive, got %d", c.PoolSize))
	}
	return errors.Join(errs...)
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatHelpers(&sb)

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Transport", string(c.Transport))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Pool Size", strconv.Itoa(c.PoolSize))

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func validateTransport(t TransportType) error {
	if t != TransportTCP && t != TransportUnix {
		return fmt.Errorf("transport must be %q or %q, got %q", TransportTCP, TransportUnix, t)
	}
	return nil
}

// formatHelpers returns the section and field writers used by String
func formatHelpers(sb *strings.Builder) (func(string), func(string, string)) {
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	return addSection, addField
}
