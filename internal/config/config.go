package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/server"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "vango.json"

	// YAMLConfigFileName is the name of the YAML configuration file. It is
	// only consulted when vango.json is absent.
	YAMLConfigFileName = "vango.yaml"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":8080"

	// DefaultWSPath is the default websocket endpoint.
	DefaultWSPath = server.DefaultWSPath
)

// Format is a configuration file syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension. Unknown extensions are
// treated as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Config represents a vango.json or vango.yaml file.
type Config struct {
	// Name is the application name, used as the page title when Server.Title
	// is empty.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Server contains listener and page settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// Session contains per-connection settings.
	Session SessionConfig `json:"session" yaml:"session"`

	// Observability toggles metrics and tracing.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`

	// Log configures the process logger.
	Log LogConfig `json:"log" yaml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains listener and page settings.
type ServerConfig struct {
	// Address is the address to listen on, e.g. ":8080".
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// WSPath is the websocket endpoint.
	WSPath string `json:"wsPath,omitempty" yaml:"wsPath,omitempty"`

	// Codec is the default wire codec: "binary" or "cbor".
	Codec string `json:"codec,omitempty" yaml:"codec,omitempty"`

	// Title is the host page title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// StyleSheets are linked from the host page.
	StyleSheets []string `json:"styleSheets,omitempty" yaml:"styleSheets,omitempty"`

	// ClientScript is a path, relative to the config file, to the browser
	// runtime served at /_vango/client.js.
	ClientScript string `json:"clientScript,omitempty" yaml:"clientScript,omitempty"`

	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`

	// ShutdownTimeout bounds graceful shutdown, e.g. "30s".
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// DevMode disables client script caching.
	DevMode bool `json:"devMode,omitempty" yaml:"devMode,omitempty"`
}

// SessionConfig contains per-connection settings. Durations are strings such
// as "10s".
type SessionConfig struct {
	ReadTimeout      Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout     Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	HandshakeTimeout Duration `json:"handshakeTimeout,omitempty" yaml:"handshakeTimeout,omitempty"`

	// HeartbeatInterval is the ping period. "0s" disables pings; unset means
	// the server default.
	HeartbeatInterval *Duration `json:"heartbeatInterval,omitempty" yaml:"heartbeatInterval,omitempty"`

	MaxMessageSize int64 `json:"maxMessageSize,omitempty" yaml:"maxMessageSize,omitempty"`
	MaxEventQueue  int   `json:"maxEventQueue,omitempty" yaml:"maxEventQueue,omitempty"`

	// CompressThreshold is the payload size from which mutation frames are
	// compressed. 0 disables compression; unset means the protocol default.
	CompressThreshold *int `json:"compressThreshold,omitempty" yaml:"compressThreshold,omitempty"`
}

// ObservabilityConfig toggles metrics and tracing.
type ObservabilityConfig struct {
	// Metrics serves Prometheus metrics at /metrics.
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing emits an OpenTelemetry span per render cycle.
	Tracing bool `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	sc := server.DefaultSessionConfig()
	heartbeat := Duration(sc.HeartbeatInterval)
	threshold := sc.CompressThreshold
	return &Config{
		Server: ServerConfig{
			Address:         DefaultAddress,
			WSPath:          DefaultWSPath,
			Codec:           protocol.CodecBinary,
			ShutdownTimeout: Duration(30 * time.Second),
		},
		Session: SessionConfig{
			ReadTimeout:       Duration(sc.ReadTimeout),
			WriteTimeout:      Duration(sc.WriteTimeout),
			HandshakeTimeout:  Duration(sc.HandshakeTimeout),
			HeartbeatInterval: &heartbeat,
			MaxMessageSize:    sc.MaxMessageSize,
			MaxEventQueue:     sc.MaxEventQueue,
			CompressThreshold: &threshold,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from dir. It looks for vango.json, then
// vango.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E102").
		WithDetail("No vango.json or vango.yaml found in " + dir).
		WithSuggestion("Create vango.json, or run without --config to use defaults")
}

// LoadFile reads configuration from the specified file path. The format
// follows the file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E102").WithDetail(path + " does not exist")
		}
		return nil, errors.New("E100").Wrap(err)
	}

	cfg, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes data over the defaults and fills anything left empty.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := New()
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E100").
			WithDetail("Failed to parse " + string(format) + " config: " + err.Error()).
			WithSuggestion("Check that the file is valid " + strings.ToUpper(string(format)))
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format its extension names.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch FormatOf(path) {
	case FormatYAML:
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E100").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E100").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = d.Server.WSPath
	}
	if c.Server.Codec == "" {
		c.Server.Codec = d.Server.Codec
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	// Session
	if c.Session.ReadTimeout == 0 {
		c.Session.ReadTimeout = d.Session.ReadTimeout
	}
	if c.Session.WriteTimeout == 0 {
		c.Session.WriteTimeout = d.Session.WriteTimeout
	}
	if c.Session.HandshakeTimeout == 0 {
		c.Session.HandshakeTimeout = d.Session.HandshakeTimeout
	}
	if c.Session.HeartbeatInterval == nil {
		c.Session.HeartbeatInterval = d.Session.HeartbeatInterval
	}
	if c.Session.MaxMessageSize == 0 {
		c.Session.MaxMessageSize = d.Session.MaxMessageSize
	}
	if c.Session.MaxEventQueue == 0 {
		c.Session.MaxEventQueue = d.Session.MaxEventQueue
	}
	if c.Session.CompressThreshold == nil {
		c.Session.CompressThreshold = d.Session.CompressThreshold
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Address); err != nil {
		return errors.New("E101").
			WithDetail("server.address " + c.Server.Address + ": " + err.Error()).
			WithSuggestion(`Use host:port, for example ":8080"`)
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return errors.New("E101").WithDetail("server.wsPath must start with '/'")
	}
	if _, err := protocol.CodecByName(c.Server.Codec); err != nil {
		return errors.New("E101").
			WithDetail("server.codec " + c.Server.Codec + " is not supported").
			WithSuggestion("Use one of: " + strings.Join(protocol.CodecNames(), ", ")).
			Wrap(err)
	}
	if c.Server.MaxSessions < 0 {
		return errors.New("E101").WithDetail("server.maxSessions must not be negative")
	}
	if c.Session.CompressThreshold != nil && *c.Session.CompressThreshold < 0 {
		return errors.New("E101").WithDetail("session.compressThreshold must not be negative")
	}
	if hb := c.Session.HeartbeatInterval; hb != nil {
		if *hb < 0 {
			return errors.New("E101").WithDetail("session.heartbeatInterval must not be negative")
		}
		if *hb > 0 && *hb >= c.Session.ReadTimeout {
			return errors.New("E101").WithDetail("session.heartbeatInterval must be shorter than session.readTimeout")
		}
	}
	if _, err := c.Log.level(); err != nil {
		return errors.New("E101").WithDetail("log.level: " + err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E101").WithDetail("log.format must be text or json, got " + c.Log.Format)
	}
	return nil
}

// ServerConfig converts the file into the host configuration. The client
// script, if configured, is read relative to the config file.
func (c *Config) ServerConfig(logger *slog.Logger) (*server.ServerConfig, error) {
	sc := &server.ServerConfig{
		Address:     c.Server.Address,
		WSPath:      c.Server.WSPath,
		Codec:       c.Server.Codec,
		Title:       c.Server.Title,
		StyleSheets: c.Server.StyleSheets,
		SessionConfig: &server.SessionConfig{
			ReadTimeout:      c.Session.ReadTimeout.Std(),
			WriteTimeout:     c.Session.WriteTimeout.Std(),
			HandshakeTimeout: c.Session.HandshakeTimeout.Std(),
			MaxMessageSize:   c.Session.MaxMessageSize,
			MaxEventQueue:    c.Session.MaxEventQueue,
		},
		MaxSessions:     c.Server.MaxSessions,
		EnableMetrics:   c.Observability.Metrics,
		EnableTracing:   c.Observability.Tracing,
		Logger:          logger,
		ShutdownTimeout: c.Server.ShutdownTimeout.Std(),
		DevMode:         c.Server.DevMode,
	}
	if sc.Title == "" {
		sc.Title = c.Name
	}
	if hb := c.Session.HeartbeatInterval; hb != nil {
		sc.SessionConfig.HeartbeatInterval = hb.Std()
	}
	if t := c.Session.CompressThreshold; t != nil {
		sc.SessionConfig.CompressThreshold = *t
	}

	if c.Server.ClientScript != "" {
		path := c.Server.ClientScript
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.Dir(), path)
		}
		script, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New("E101").
				WithDetail("server.clientScript: " + err.Error()).
				Wrap(err)
		}
		sc.ClientScript = script
	}
	return sc, nil
}

// Logger builds the process logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Log.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E102").
				WithDetail("No vango.json or vango.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
