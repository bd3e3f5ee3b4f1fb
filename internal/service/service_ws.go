package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/nodefleet/hubcore/internal/metrics"
	"nhooyr.io/websocket"
)

// ServeWS accepts WebSocket connections on the Service's configured
// address and path (default "/"), upgrading each HTTP request and handing
// the resulting connection to spawnPair exactly as the plain TCP accept
// loop does. If Options.TLSConfig is set, every accepted stream is wrapped
// in TLS before the WebSocket handshake runs, implementing the TLS variant
// of the accept loop for this transport.
func (s *Service) ServeWS(ctx context.Context) error {
	path := s.opts.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		s.acceptWS(ctx, w, r)
	})

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		metrics.IncError(metrics.ErrListen)
		return fmt.Errorf("%w: %v", ErrListen, err)
	}
	if s.opts.TLSConfig != nil {
		ln = tls.NewListener(ln, s.opts.TLSConfig)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.opts.Logger.Info("service_listen_ws", "service", s.opts.MetricsLabel, "addr", ln.Addr().String(), "path", path, "tls", s.opts.TLSConfig != nil)

	srv := &http.Server{Handler: mux}
	go func() { <-ctx.Done(); _ = srv.Close() }()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		metrics.IncError(metrics.ErrListen)
		return fmt.Errorf("%w: %v", ErrListen, err)
	}
	s.wg.Wait()
	return nil
}

func (s *Service) acceptWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		metrics.IncHandshakeFail(s.opts.MetricsLabel)
		return
	}
	metrics.IncAccepted(s.opts.MetricsLabel)

	if s.sem != nil {
		if acqErr := s.sem.Acquire(ctx, 1); acqErr != nil {
			metrics.IncReject(s.opts.MetricsLabel)
			_ = c.Close(websocket.StatusTryAgainLater, "server busy")
			return
		}
	}

	wc := newWSConn(c, s.opts.Logger)
	s.spawnPair(ctx, wc, s.nextVFD())
}
