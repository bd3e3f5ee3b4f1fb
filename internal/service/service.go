// Package service implements the connection accept loop: it
// binds a listener, enforces a semaphore-based connection admission cap,
// allocates vfds, and spawns the paired ConnReader/ConnWriter goroutines
// for every accepted connection. The TCP accept loop lives here
// (service.go); the WebSocket/TLS variant lives in service_ws.go and the
// outbound-dial variant used by RpcClientHub lives in dial.go.
package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nodefleet/hubcore/internal/conn"
	"github.com/nodefleet/hubcore/internal/metrics"
	"github.com/nodefleet/hubcore/internal/wire"
	"golang.org/x/sync/semaphore"
)

// Options configures a Service. Announce and MsgSender are the channels to
// the owning hub: Announce is published to with a blocking send (the hub
// must always be draining it), MsgSender carries decoded
// envelopes and SocketClosed notifications.
type Options struct {
	ServiceType     wire.ServiceType
	Addr            string
	MaxConnections  int64 // conn_semaphore permits; <=0 means no admission cap.
	ConnMsgChanSize int
	ReadDeadline    time.Duration
	Codec           wire.Codec
	Announce        chan<- wire.Announce
	MsgSender       chan<- wire.Envelope
	// WellKnownTargets is threaded through to every writer this Service
	// spawns; the WebSocket game listener sets this so the script-host
	// layer can address broadcast targets (vfd < 100) from any writer.
	WellKnownTargets bool
	// MetricsLabel names this service in the conn_accepted_total /
	// conn_active / hub_ingress_dropped_total label spaces, e.g. "game",
	// "rpc", "rpc_client".
	MetricsLabel string
	Logger       *slog.Logger

	// Path and TLSConfig are consulted only by ServeWS (service_ws.go).
	// Path defaults to "/" when empty. A nil TLSConfig serves plain HTTP;
	// a non-nil one wraps every accepted stream in TLS before the
	// WebSocket handshake, per the TLS variant of the accept loop.
	Path      string
	TLSConfig *tls.Config
}

// Service owns one listener's accept loop and the bookkeeping (vfd counter,
// admission semaphore) shared by every connection it spawns.
type Service struct {
	opts Options
	sem  *semaphore.Weighted
	vfd  atomic.Uint64 // starts at 100; first allocated vfd is 101.

	mu       sync.Mutex
	listener net.Listener

	wg sync.WaitGroup
}

// defaultReadDeadline arms a reader's socket read even when the caller
// leaves Options.ReadDeadline unset, mirroring the teacher's
// defaultReadDeadline fallback (internal/server/server.go): a blocked
// read must periodically return so the reader notices ctx cancellation
// between frames, not just at frame boundaries.
const defaultReadDeadline = 60 * time.Second

// New builds a Service. A nil/zero MaxConnections means unbounded admission
// (no semaphore is constructed).
func New(opts Options) *Service {
	s := &Service{opts: opts}
	s.vfd.Store(100)
	if opts.MaxConnections > 0 {
		s.sem = semaphore.NewWeighted(opts.MaxConnections)
	}
	if s.opts.Logger == nil {
		s.opts.Logger = slog.Default()
	}
	if s.opts.ReadDeadline <= 0 {
		s.opts.ReadDeadline = defaultReadDeadline
	}
	return s
}

func (s *Service) nextVFD() wire.VFD { return wire.VFD(s.vfd.Add(1)) }

// Addr returns the bound listener address, valid only after Serve has
// started listening.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.opts.Addr
	}
	return s.listener.Addr().String()
}

// Serve accepts TCP connections until ctx is cancelled or the accept-error
// backoff in backoff.go surfaces a fatal error.
func (s *Service) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(metrics.ErrListen)
		return wrap
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.opts.Logger.Info("service_listen", "service", s.opts.MetricsLabel, "addr", ln.Addr().String())

	go func() { <-ctx.Done(); _ = ln.Close() }()

	bo := newBackoff()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			d, fatal := bo.next()
			metrics.IncError(metrics.ErrAccept)
			if fatal {
				wrap := fmt.Errorf("%w: %v", ErrAccept, err)
				return wrap
			}
			s.opts.Logger.Warn("accept_error_backoff", "service", s.opts.MetricsLabel, "error", err, "backoff", d)
			select {
			case <-time.After(d):
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			}
			continue
		}
		bo.reset()
		metrics.IncAccepted(s.opts.MetricsLabel)
		s.handleAccepted(ctx, conn)
	}
}

// handleAccepted acquires an admission permit and hands the connection to
// spawnPair, allocating a fresh vfd.
func (s *Service) handleAccepted(ctx context.Context, c net.Conn) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			metrics.IncReject(s.opts.MetricsLabel)
			_ = c.Close()
			return
		}
	}
	s.spawnPair(ctx, c, s.nextVFD())
}

// spawnPair publishes the (vfd, sender) announcement to the owning hub and
// spawns the paired reader/writer goroutines over c. Called for every
// connection this Service produces, whether from the TCP accept loop, the
// WebSocket accept loop, or an outbound dial. The caller is responsible for
// having already acquired an admission permit.
func (s *Service) spawnPair(ctx context.Context, c net.Conn, vfd wire.VFD) {
	outbound := make(chan wire.Envelope, s.opts.ConnMsgChanSize)
	pairdrop := make(chan struct{})

	select {
	case s.opts.Announce <- wire.Announce{VFD: vfd, Sender: outbound}:
	case <-ctx.Done():
		s.releasePermit()
		_ = c.Close()
		return
	}

	logger := s.opts.Logger.With("service", s.opts.MetricsLabel, "vfd", vfd)

	w := &conn.Writer{
		ServiceType:      s.opts.ServiceType,
		VFD:              vfd,
		Codec:            s.opts.Codec,
		WellKnownTargets: s.opts.WellKnownTargets,
		Logger:           logger,
	}
	r := &conn.Reader{
		ServiceType:  s.opts.ServiceType,
		VFD:          vfd,
		Codec:        s.opts.Codec,
		ProtoSender:  s.opts.MsgSender,
		ReadDeadline: s.opts.ReadDeadline,
		Logger:       logger,
		HubLabel:     s.opts.MetricsLabel,
	}

	s.wg.Add(3)
	go func() {
		// Forces a blocked reader off its current Read on shutdown: the read
		// deadline alone only wakes the reader between deadline ticks, and
		// nothing else closes this conn before r.Run returns on its own. This
		// mirrors the teacher's Shutdown(), which closes every tracked conn
		// directly (internal/server/server.go).
		defer s.wg.Done()
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-pairdrop:
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := w.Run(ctx, c, outbound, pairdrop); err != nil {
			logger.Warn("writer_exit", "error", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		defer s.releasePermit()
		defer close(pairdrop)
		defer func() { _ = c.Close() }()

		err := r.Run(ctx, c)
		if err != nil {
			logger.Warn("reader_exit", "error", err)
		}
		// Posted by the task supervising the reader, not the reader itself,
		// so the notification survives the reader goroutine's own exit.
		select {
		case s.opts.MsgSender <- wire.Envelope{Kind: wire.KindSocketClosed, Session: wire.Session(vfd), Msg: wire.ClosedPayload{}}:
		case <-ctx.Done():
		}
	}()
}

func (s *Service) releasePermit() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

// Shutdown waits for every spawned reader/writer pair to exit. Cancelling
// the context passed to Serve is what actually triggers that exit; Shutdown
// only blocks until it has happened or ctx expires first.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContext, ctx.Err())
	case <-done:
		return nil
	}
}
