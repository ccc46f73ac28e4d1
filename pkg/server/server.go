package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/middleware"
	"github.com/vango-dev/vango-core/pkg/protocol"
	"github.com/vango-dev/vango-core/pkg/render"
	"github.com/vango-dev/vango-core/pkg/vango"
)

// AppFunc creates the runtime for one page load or one connection. The
// options carry the host's logger, observers and lifetime context and must
// be passed to vango.New.
type AppFunc func(r *http.Request, opts ...vango.Option) *vango.Runtime

// Mount adapts a root component and fixed props to an AppFunc.
func Mount[P any](app vango.Render[P], props P) AppFunc {
	return func(_ *http.Request, opts ...vango.Option) *vango.Runtime {
		return vango.New(app, props, opts...)
	}
}

// Server is the HTTP/WebSocket host for liveview sessions.
type Server struct {
	app      AppFunc
	config   *ServerConfig
	router   chi.Router
	upgrader websocket.Upgrader
	sessions *SessionManager
	logger   *slog.Logger

	// Observability; metrics and registry are nil unless enabled.
	metrics  *middleware.Metrics
	registry *prometheus.Registry

	// ctx ends every session on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	httpServer *http.Server
}

// New creates a Server for app. Unset config fields take their defaults.
func New(app AppFunc, config *ServerConfig) *Server {
	config = config.withDefaults()
	logger := config.Logger.With("component", "server")

	if err := config.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		app:    app,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		sessions: newSessionManager(config.MaxSessions),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if config.EnableMetrics {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.metrics = middleware.NewMetrics(middleware.WithRegistry(s.registry))
	}

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/", s.servePage)
	r.Get(s.config.WSPath, s.HandleWebSocket)
	r.Get("/healthz", s.serveHealth)
	if len(s.config.ClientScript) > 0 {
		r.Get(clientScriptPath, s.serveClientScript)
		r.Head(clientScriptPath, s.serveClientScript)
	}
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the http.Handler for mounting in external routers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// servePage renders the host page with a snapshot of the application. The
// snapshot runtime is discarded; the socket session builds its own.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	rt := s.app(r, vango.WithLogger(s.logger), vango.WithContext(r.Context()))
	defer rt.Close()

	doc := render.NewDocument()
	if err := rt.Rebuild(doc); err != nil {
		s.logger.Error("snapshot render failed", "error", err, "code", vangoerrors.Code(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page := render.PageData{
		Title:       s.config.Title,
		Body:        doc.Root(),
		SocketPath:  s.config.WSPath,
		Codec:       s.config.Codec,
		StyleSheets: s.config.StyleSheets,
	}

	var buf bytes.Buffer
	var renderer render.Renderer
	if err := renderer.RenderPage(&buf, page); err != nil {
		s.logger.Error("page render failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.ctx.Err() != nil {
		status, code = "shutting_down", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: status, Sessions: s.sessions.Count()})
}

// HandleWebSocket upgrades the connection, performs the handshake and runs
// the session until it ends.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		if s.metrics != nil {
			s.metrics.WebSocketError("handshake")
		}
		return
	}

	sc := s.config.SessionConfig
	conn.SetReadLimit(sc.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(sc.HandshakeTimeout))

	codec, status, err := s.readHandshake(conn)
	if err != nil {
		s.logger.Warn("handshake rejected", "status", status, "error", err, "remote", r.RemoteAddr)
		if s.metrics != nil {
			s.metrics.WebSocketError("handshake")
		}
		s.sendHandshakeError(conn, status)
		conn.Close()
		return
	}

	id := generateSessionID()
	logger := s.config.Logger.With("session_id", id)
	observers := vango.MultiObserver{}
	if s.metrics != nil {
		observers = append(observers, s.metrics)
	}
	if s.config.EnableTracing {
		observers = append(observers, middleware.NewTracer(
			middleware.WithParent(s.ctx),
			middleware.WithAttributes(attribute.String("vango.session", id)),
		))
	}

	rt := s.app(r,
		vango.WithLogger(logger),
		vango.WithObserver(observers),
		vango.WithContext(s.ctx),
	)
	session := newSession(id, conn, rt, codec, sc, logger, s.metrics)

	if err := s.sessions.add(session); err != nil {
		rt.Close()
		s.logger.Warn("session rejected", "error", err, "sessions", s.sessions.Count())
		s.sendHandshakeError(conn, protocol.HandshakeServerBusy)
		conn.Close()
		return
	}
	defer s.sessions.remove(id)
	if s.metrics != nil {
		s.metrics.SessionOpened()
		defer s.metrics.SessionClosed()
	}

	s.sendServerHello(conn, session)
	logger.Info("session started", "codec", codec.Name(), "remote", r.RemoteAddr)
	_ = session.Run(s.ctx)
}

// readHandshake reads the client hello and negotiates the codec.
func (s *Server) readHandshake(conn *websocket.Conn) (protocol.Codec, protocol.HandshakeStatus, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, protocol.HandshakeInvalidFormat, handshakeError(err)
	}
	return s.negotiate(msg)
}

// negotiate checks a client hello message and picks the session codec.
// Rejections wrap ErrInvalidHandshake in a *SessionError.
func (s *Server) negotiate(msg []byte) (protocol.Codec, protocol.HandshakeStatus, error) {
	frame, err := protocol.Unpack(msg)
	if err != nil {
		return nil, protocol.HandshakeInvalidFormat, handshakeError(err)
	}
	if frame.Type != protocol.FrameHandshake {
		return nil, protocol.HandshakeInvalidFormat, handshakeError(vangoerrors.New("E065").WithDetail(frame.Type.String()))
	}
	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		return nil, protocol.HandshakeInvalidFormat, handshakeError(err)
	}
	if !hello.Version.Compatible() {
		return nil, protocol.HandshakeVersionMismatch, handshakeError(vangoerrors.New("E064"))
	}
	name := hello.Codec
	if name == "" {
		name = s.config.Codec
	}
	codec, err := protocol.CodecByName(name)
	if err != nil {
		return nil, protocol.HandshakeUnsupportedCodec, handshakeError(err)
	}
	return codec, protocol.HandshakeOK, nil
}

func handshakeError(err error) error {
	return NewSessionError("", "handshake", fmt.Errorf("%w: %w", ErrInvalidHandshake, err))
}

// sendHandshakeError sends a handshake error response.
func (s *Server) sendHandshakeError(conn *websocket.Conn, status protocol.HandshakeStatus) {
	f := &protocol.Frame{Type: protocol.FrameHandshake, Payload: protocol.EncodeServerHello(protocol.NewServerHelloError(status))}
	conn.SetWriteDeadline(time.Now().Add(s.config.SessionConfig.WriteTimeout))
	conn.WriteMessage(websocket.BinaryMessage, f.Encode())
}

// sendServerHello sends a successful handshake response.
func (s *Server) sendServerHello(conn *websocket.Conn, session *Session) {
	hello := protocol.NewServerHello(session.ID, session.codec.Name())
	f := &protocol.Frame{Type: protocol.FrameHandshake, Payload: protocol.EncodeServerHello(hello)}
	session.write(f.Encode())
}

// Run starts the server and blocks until SIGINT/SIGTERM or a listen error.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	// Set up graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address, "ws", s.config.WSPath, "codec", s.config.Codec)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown ends every session with a ServerShutdown close frame, then stops
// the HTTP server. It waits at most ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.cancel()
	select {
	case <-s.sessions.wait():
	case <-ctx.Done():
		s.logger.Warn("sessions still running at shutdown", "sessions", s.sessions.Count())
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the effective configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Metrics returns the Prometheus observer, or nil when metrics are disabled.
func (s *Server) Metrics() *middleware.Metrics {
	return s.metrics
}
