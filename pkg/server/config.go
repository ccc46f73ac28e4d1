package server

import (
	"log/slog"
	"net/http"
	"time"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/protocol"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// Timeouts

	// ReadTimeout is the maximum time to wait for a message from the client.
	// Heartbeat pongs keep an idle connection inside this window.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HandshakeTimeout is the maximum time for the initial handshake.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings. Zero disables
	// pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxEventQueue is the size of the event channel buffer. Events arriving
	// while it is full are dropped and reported to the client.
	// Default: 256.
	MaxEventQueue int

	// CompressThreshold is the payload size from which mutation frames are
	// zstd-compressed. Zero disables compression.
	// Default: protocol.DefaultCompressThreshold.
	CompressThreshold int
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024, // 64KB
		MaxEventQueue:     256,
		CompressThreshold: protocol.DefaultCompressThreshold,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ServerConfig holds configuration for the HTTP/WebSocket host.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// WSPath is the websocket endpoint.
	// Default: "/_vango/live".
	WSPath string

	// Codec is the wire codec used when the client does not ask for one.
	// Default: "binary".
	Codec string

	// Title is the host page title.
	Title string

	// StyleSheets are linked from the host page.
	StyleSheets []string

	// ClientScript is the browser runtime served at /_vango/client.js. When
	// empty the route is not registered and the application must serve the
	// script itself.
	ClientScript []byte

	// WebSocket buffer sizes

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: allows all origins (not recommended for production).
	CheckOrigin func(r *http.Request) bool

	// SessionConfig is the configuration for individual sessions.
	// Default: DefaultSessionConfig().
	SessionConfig *SessionConfig

	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int

	// Observability

	// EnableMetrics registers Prometheus collectors and serves /metrics.
	EnableMetrics bool

	// EnableTracing attaches an OpenTelemetry tracer to every session. Spans
	// go to the global tracer provider.
	EnableTracing bool

	// Logger receives server and session logs. Default: slog.Default().
	Logger *slog.Logger

	// Server lifecycle

	// ShutdownTimeout bounds how long Shutdown waits for sessions to end.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout is the http.Server ReadHeaderTimeout.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// DevMode disables client script caching.
	DevMode bool
}

// DefaultWSPath is the websocket endpoint used when ServerConfig.WSPath is
// empty.
const DefaultWSPath = "/_vango/live"

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           ":8080",
		WSPath:            DefaultWSPath,
		Codec:             protocol.CodecBinary,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       func(r *http.Request) bool { return true },
		SessionConfig:     DefaultSessionConfig(),
		ShutdownTimeout:   30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// withDefaults fills every unset field from DefaultServerConfig.
func (c *ServerConfig) withDefaults() *ServerConfig {
	defaults := DefaultServerConfig()
	if c == nil {
		return defaults
	}
	out := *c
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.WSPath == "" {
		out.WSPath = defaults.WSPath
	}
	if out.Codec == "" {
		out.Codec = defaults.Codec
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = defaults.CheckOrigin
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}

	sc := defaults.SessionConfig
	if c.SessionConfig != nil {
		sc = c.SessionConfig.Clone()
		d := DefaultSessionConfig()
		if sc.ReadTimeout == 0 {
			sc.ReadTimeout = d.ReadTimeout
		}
		if sc.WriteTimeout == 0 {
			sc.WriteTimeout = d.WriteTimeout
		}
		if sc.HandshakeTimeout == 0 {
			sc.HandshakeTimeout = d.HandshakeTimeout
		}
		if sc.MaxMessageSize == 0 {
			sc.MaxMessageSize = d.MaxMessageSize
		}
		if sc.MaxEventQueue == 0 {
			sc.MaxEventQueue = d.MaxEventQueue
		}
	}
	out.SessionConfig = sc
	return &out
}

// Validate reports the first invalid field as an E101 error.
func (c *ServerConfig) Validate() error {
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return err
	}
	if len(c.WSPath) == 0 || c.WSPath[0] != '/' {
		return vangoerrors.New("E101").WithDetail("WSPath must start with '/', got " + c.WSPath)
	}
	if c.MaxSessions < 0 {
		return vangoerrors.New("E101").WithDetail("MaxSessions must not be negative")
	}
	if sc := c.SessionConfig; sc != nil {
		if sc.CompressThreshold < 0 {
			return vangoerrors.New("E101").WithDetail("CompressThreshold must not be negative")
		}
		if sc.HeartbeatInterval < 0 {
			return vangoerrors.New("E101").WithDetail("HeartbeatInterval must not be negative")
		}
		if sc.HeartbeatInterval > 0 && sc.HeartbeatInterval >= sc.ReadTimeout {
			return vangoerrors.New("E101").WithDetail("HeartbeatInterval must be shorter than ReadTimeout")
		}
	}
	return nil
}
