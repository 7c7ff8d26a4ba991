package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/env"
)

// EnvFactory builds the environment of one connection.
type EnvFactory func(sessionID string) (*env.Environment, error)

// Server exposes environments to external trainers over websocket. Each
// connection owns one environment and is served by one goroutine, so frames
// of a session are handled strictly in order.
type Server struct {
	config  Config
	factory EnvFactory
	logger  log.Log

	upgrader websocket.Upgrader
	http     *http.Server
	listener net.Listener
	quic     *quicTransport

	sessions    sync.Map // map[string]func(), closes the session
	clientCount int64    // atomic

	running int32 // atomic bool
	closed  int32 // atomic bool
	workers sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	Path       string `json:"path" yaml:"path"`
	MaxClients int    `json:"max_clients" yaml:"max_clients"`
	// Token, when set, must be presented as ?token= or a Bearer header.
	Token string `json:"token" yaml:"token"`

	MaxMessageSize  int64         `json:"max_message_size" yaml:"max_message_size"`
	ReadBufferSize  int           `json:"read_buffer_size" yaml:"read_buffer_size"`
	WriteBufferSize int           `json:"write_buffer_size" yaml:"write_buffer_size"`
	ClientTimeout   time.Duration `json:"client_timeout" yaml:"client_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// QUICAddr enables the QUIC transport when set. Without a certificate
	// pair a self-signed one is generated at start.
	QUICAddr     string `json:"quic_addr" yaml:"quic_addr"`
	QUICCertFile string `json:"quic_cert_file" yaml:"quic_cert_file"`
	QUICKeyFile  string `json:"quic_key_file" yaml:"quic_key_file"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8080",
		Path:            "/env",
		MaxClients:      64,
		MaxMessageSize:  64 * 1024,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		ClientTimeout:   5 * time.Minute,
		WriteTimeout:    10 * time.Second,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("%w: listen_addr is empty", ErrInvalidConfig)
	case !strings.HasPrefix(c.Path, "/"):
		return fmt.Errorf("%w: path must start with /", ErrInvalidConfig)
	case c.MaxClients <= 0:
		return fmt.Errorf("%w: max_clients must be positive", ErrInvalidConfig)
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("%w: max_message_size must be positive", ErrInvalidConfig)
	case c.ClientTimeout <= 0 || c.WriteTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case (c.QUICCertFile == "") != (c.QUICKeyFile == ""):
		return fmt.Errorf("%w: quic_cert_file and quic_key_file go together", ErrInvalidConfig)
	}
	return nil
}

// NewServer creates a stopped server.
func NewServer(config Config, factory EnvFactory, logger log.Log) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, ErrNilFactory
	}

	s := &Server{
		config:  config,
		factory: factory,
		logger:  log.OrNop(logger).With(log.String("component", "server")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
		},
	}

	s.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.String("path", config.Path),
		log.Int("max_clients", config.MaxClients))

	return s, nil
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}
	s.listener = listener
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	if s.config.QUICAddr != "" {
		qt, err := listenQUIC(s.config)
		if err != nil {
			_ = listener.Close()
			atomic.StoreInt32(&s.running, 0)
			s.logger.Error("Failed to create QUIC listener", log.Error(err))
			return fmt.Errorf("%w: %w", ErrListenerFailed, err)
		}
		s.quic = qt
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			s.acceptQUIC(qt)
		}()
		s.logger.Info("QUIC transport listening", log.String("addr", qt.Addr().String()))
	}

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server stopped unexpectedly", log.Error(err))
		}
	}()

	s.logger.Info("Server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr is the bound listen address, or nil when not running.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// QUICAddr is the bound QUIC address, or nil when the transport is disabled.
func (s *Server) QUICAddr() net.Addr {
	if s.quic == nil {
		return nil
	}
	return s.quic.Addr()
}

// Stop shuts the listener down and disconnects every session.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	err := s.http.Shutdown(ctx)
	if s.quic != nil {
		_ = s.quic.Close()
	}
	s.sessions.Range(func(_, value any) bool {
		if closeFn, ok := value.(func()); ok {
			closeFn()
		}
		return true
	})
	s.workers.Wait()

	s.logger.Info("Server stopped")
	return err
}

// Close closes the server and releases all resources
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	if atomic.LoadInt32(&s.running) == 1 {
		return s.Stop(context.Background())
	}
	return nil
}

// Clients is the number of connected sessions.
func (s *Server) Clients() int64 { return atomic.LoadInt64(&s.clientCount) }

// admit reserves a client slot. The caller releases it on disconnect.
func (s *Server) admit() bool {
	if atomic.AddInt64(&s.clientCount, 1) > int64(s.config.MaxClients) {
		atomic.AddInt64(&s.clientCount, -1)
		return false
	}
	return true
}

func (s *Server) tokenValid(token string) bool {
	if s.config.Token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.config.Token)) == 1
}

func (s *Server) authorized(r *http.Request) bool {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return s.tokenValid(token)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.logger.Warn("Rejected unauthorized client", log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}
	if !s.admit() {
		s.logger.Warn("Maximum clients reached, rejecting connection", log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt64(&s.clientCount, -1)

	sessionID := uuid.NewString()
	e, err := s.factory(sessionID)
	if err != nil {
		s.logger.Error("Failed to create environment", log.String("session_id", sessionID), log.Error(err))
		http.Error(w, "environment unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}
	s.sessions.Store(sessionID, func() { _ = conn.Close() })
	defer func() {
		s.sessions.Delete(sessionID)
		_ = conn.Close()
	}()

	s.serveSession(sessionID, conn, e)
}

func (s *Server) serveSession(sessionID string, conn *websocket.Conn, e *env.Environment) {
	logger := s.logger.With(log.String("session_id", sessionID))
	logger.Info("Client connected",
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int64("total_clients", s.Clients()))
	defer logger.Info("Client disconnected")

	conn.SetReadLimit(s.config.MaxMessageSize)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ClientTimeout))
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Failed to receive message", log.Error(err))
			}
			return
		}

		var resp any
		if kind != websocket.TextMessage {
			resp = errorResponse(fmt.Errorf("%w: expected a text frame", ErrInvalidMessage))
		} else {
			resp = handleFrame(e, frame)
		}
		if er, ok := resp.(ErrorResponse); ok {
			logger.Debug("Request rejected", log.String("error", er.Error))
		}

		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warn("Failed to send message", log.Error(err))
			return
		}
	}
}
