package server

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/env"
)

// QUICProtocol is the ALPN name clients must offer.
const QUICProtocol = "racer-env"

// Application error codes sent when the server closes a QUIC connection.
const (
	quicCodeNormal       quic.ApplicationErrorCode = 0
	quicCodeRejected     quic.ApplicationErrorCode = 1
	quicCodeUnauthorized quic.ApplicationErrorCode = 2
)

// quicTransport carries sessions over QUIC. A session is the first
// bidirectional stream of a connection. Frames are newline-delimited JSON
// with the same ops as the websocket transport.
type quicTransport struct {
	listener *quic.Listener
	closed   int32 // atomic bool
}

func listenQUIC(cfg Config) (*quicTransport, error) {
	tlsConfig, err := quicTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	listener, err := quic.ListenAddr(cfg.QUICAddr, tlsConfig, &quic.Config{
		MaxIdleTimeout:  cfg.ClientTimeout,
		KeepAlivePeriod: cfg.ClientTimeout / 2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.QUICAddr, err)
	}
	return &quicTransport{listener: listener}, nil
}

func (t *quicTransport) Addr() net.Addr { return t.listener.Addr() }

func (t *quicTransport) Close() error {
	if !atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		return nil
	}
	return t.listener.Close()
}

func quicTLSConfig(cfg Config) (*tls.Config, error) {
	var cert tls.Certificate
	var err error
	if cfg.QUICCertFile != "" {
		cert, err = tls.LoadX509KeyPair(cfg.QUICCertFile, cfg.QUICKeyFile)
	} else {
		cert, err = selfSignedCertificate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load QUIC certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{QUICProtocol},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

func selfSignedCertificate() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	template := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{Organization: []string{"Racer"}},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

func (s *Server) acceptQUIC(t *quicTransport) {
	for {
		conn, err := t.listener.Accept(context.Background())
		if err != nil {
			if atomic.LoadInt32(&t.closed) == 0 {
				s.logger.Error("Failed to accept QUIC connection", log.Error(err))
			}
			return
		}

		if !s.admit() {
			s.logger.Warn("Maximum clients reached, rejecting connection",
				log.String("remote_addr", conn.RemoteAddr().String()))
			_ = conn.CloseWithError(quicCodeRejected, ErrMaxClientsReached.Error())
			continue
		}

		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			defer atomic.AddInt64(&s.clientCount, -1)
			s.handleQUIC(conn)
		}()
	}
}

func (s *Server) handleQUIC(conn *quic.Conn) {
	sessionID := uuid.NewString()
	logger := s.logger.With(log.String("session_id", sessionID), log.String("transport", "quic"))

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ClientTimeout)
	stream, err := conn.AcceptStream(ctx)
	cancel()
	if err != nil {
		logger.Warn("Client opened no stream", log.Error(err))
		_ = conn.CloseWithError(quicCodeNormal, "no stream")
		return
	}

	s.sessions.Store(sessionID, func() { _ = conn.CloseWithError(quicCodeNormal, "server stopping") })
	defer s.sessions.Delete(sessionID)

	lines := bufio.NewScanner(stream)
	lines.Buffer(make([]byte, 0, 4096), int(s.config.MaxMessageSize))
	enc := json.NewEncoder(stream)

	send := func(resp any) error {
		_ = stream.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		return enc.Encode(resp)
	}
	next := func() ([]byte, bool) {
		_ = stream.SetReadDeadline(time.Now().Add(s.config.ClientTimeout))
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				logger.Warn("Failed to receive message", log.Error(err))
			}
			return nil, false
		}
		return lines.Bytes(), true
	}

	frame, ok := next()
	if !ok {
		_ = conn.CloseWithError(quicCodeNormal, "")
		return
	}
	var first Request
	if err := json.Unmarshal(frame, &first); err == nil && first.Op == OpHello {
		if !s.tokenValid(first.Token) {
			logger.Warn("Rejected unauthorized client", log.String("remote_addr", conn.RemoteAddr().String()))
			_ = send(errorResponse(ErrUnauthorized))
			_ = stream.Close()
			_ = conn.CloseWithError(quicCodeUnauthorized, ErrUnauthorized.Error())
			return
		}
		if err := send(HelloResponse{Op: OpHello, SessionID: sessionID}); err != nil {
			logger.Warn("Failed to send message", log.Error(err))
			return
		}
		frame = nil
	} else if s.config.Token != "" {
		logger.Warn("Rejected unauthorized client", log.String("remote_addr", conn.RemoteAddr().String()))
		_ = send(errorResponse(ErrUnauthorized))
		_ = stream.Close()
		_ = conn.CloseWithError(quicCodeUnauthorized, ErrUnauthorized.Error())
		return
	}

	e, err := s.factory(sessionID)
	if err != nil {
		logger.Error("Failed to create environment", log.Error(err))
		_ = conn.CloseWithError(quicCodeRejected, "environment unavailable")
		return
	}

	logger.Info("Client connected",
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int64("total_clients", s.Clients()))
	defer logger.Info("Client disconnected")

	s.serveStream(logger, e, frame, next, send)
	_ = stream.Close()
	_ = conn.CloseWithError(quicCodeNormal, "")
}

// serveStream answers frames until the client goes away. A non-nil pending
// frame is handled first.
func (s *Server) serveStream(logger log.Log, e *env.Environment, pending []byte, next func() ([]byte, bool), send func(any) error) {
	for {
		frame := pending
		pending = nil
		if frame == nil {
			var ok bool
			if frame, ok = next(); !ok {
				return
			}
		}

		resp := handleFrame(e, frame)
		if er, ok := resp.(ErrorResponse); ok {
			logger.Debug("Request rejected", log.String("error", er.Error))
		}
		if err := send(resp); err != nil {
			logger.Warn("Failed to send message", log.Error(err))
			return
		}
	}
}
