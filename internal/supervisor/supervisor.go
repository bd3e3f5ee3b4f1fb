// Package supervisor composes the listening Services, the two hubs, and the
// timer wheel into one running process, and drives orderly shutdown through
// the all_services_closed rendezvous: every goroutine this package starts is
// tracked by one WaitGroup, and Run returns only once all of them have
// unwound after ctx is cancelled.
package supervisor

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"
	"time"

	"github.com/nodefleet/hubcore/internal/gamehub"
	"github.com/nodefleet/hubcore/internal/rpchub"
	"github.com/nodefleet/hubcore/internal/scripthost"
	"github.com/nodefleet/hubcore/internal/service"
	"github.com/nodefleet/hubcore/internal/wire"
)

// Config is the fully-resolved set of listener and hub parameters the
// supervisor needs to start a process. It is deliberately a plain struct
// rather than *config.Config: cmd/hubd is responsible for translating the
// key=value file (internal/config) into this shape, so this package never
// parses configuration itself.
type Config struct {
	HostID wire.HostID
	FPS    int

	GameAddr      string
	GameIsWS      bool
	GameWSPath    string
	GameTLS       *tls.Config
	RPCAddr       string
	MaxConnection int64

	ConnMsgChanSize int
	// ReadDeadline bounds every reader's blocking socket read, so a reader
	// on an idle connection notices ctx cancellation between deadline
	// ticks rather than never. <=0 falls back to service.New's default.
	ReadDeadline time.Duration

	Codec   wire.Codec
	Upcalls scripthost.Upcalls
	Logger  *slog.Logger
}

// Supervisor owns the three Services (game listener, RPC listener, RPC
// client egress), GameHub, and RpcClientHub for one process.
type Supervisor struct {
	GameService  *service.Service
	RPCService   *service.Service
	RPCClientSvc *service.Service

	GameHub *gamehub.Hub
	RPCHub  *rpchub.Hub

	gameIsWS bool
	logger   *slog.Logger

	wg sync.WaitGroup
}

// New wires a Supervisor's Services and hubs together but starts nothing;
// call Run to start every goroutine.
func New(cfg Config) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 10
	}

	gameAnnounce := make(chan wire.Announce, 64)
	gameMsg := make(chan wire.Envelope, 256)
	rpcAnnounce := make(chan wire.Announce, 64)
	rpcMsg := make(chan wire.Envelope, 256)
	rpcClientAnnounce := make(chan wire.Announce, 64)
	rpcClientOutbound := make(chan wire.Envelope, 256)

	gameHubClosed := make(chan struct{})
	rpcHubClosed := make(chan struct{})

	gh := gamehub.New(cfg.FPS, cfg.Upcalls, gameAnnounce, gameMsg, rpcAnnounce, rpcMsg, gameHubClosed, logger.With("hub", "game"))

	gameSvc := service.New(service.Options{
		ServiceType:      wire.ServiceTCP,
		Addr:             cfg.GameAddr,
		MaxConnections:   cfg.MaxConnection,
		ConnMsgChanSize:  cfg.ConnMsgChanSize,
		ReadDeadline:     cfg.ReadDeadline,
		Codec:            cfg.Codec,
		Announce:         gameAnnounce,
		MsgSender:        gameMsg,
		WellKnownTargets: cfg.GameIsWS,
		MetricsLabel:     "game",
		Path:             cfg.GameWSPath,
		TLSConfig:        cfg.GameTLS,
		Logger:           logger.With("service", "game"),
	})

	rpcSvc := service.New(service.Options{
		ServiceType:     wire.ServiceRPC,
		Addr:            cfg.RPCAddr,
		ConnMsgChanSize: cfg.ConnMsgChanSize,
		ReadDeadline:    cfg.ReadDeadline,
		Codec:           cfg.Codec,
		Announce:        rpcAnnounce,
		MsgSender:       rpcMsg,
		MetricsLabel:    "rpc",
		Logger:          logger.With("service", "rpc"),
	})

	rpcClientSvc := service.New(service.Options{
		ServiceType:     wire.ServiceRPCClient,
		ConnMsgChanSize: cfg.ConnMsgChanSize,
		ReadDeadline:    cfg.ReadDeadline,
		Codec:           cfg.Codec,
		Announce:        rpcClientAnnounce,
		MsgSender:       rpcClientOutbound,
		MetricsLabel:    "rpc_client",
		Logger:          logger.With("service", "rpc_client"),
	})

	rh := rpchub.New(cfg.HostID, rpcClientSvc, rpcClientAnnounce, rpcClientOutbound, rpcHubClosed, logger.With("hub", "rpc_client"))

	return &Supervisor{
		GameService:  gameSvc,
		RPCService:   rpcSvc,
		RPCClientSvc: rpcClientSvc,
		GameHub:      gh,
		RPCHub:       rh,
		gameIsWS:     cfg.GameIsWS,
		logger:       logger,
	}
}

// Run starts every Service and hub goroutine and blocks until ctx is
// cancelled, then waits for each of them to finish unwinding before
// returning. This is the all_services_closed rendezvous from spec.md §2
// item 9 and §5 Cancellation: cancelling ctx is the broadcast shutdown
// signal, and Run returning is the supervisor observing every reference to
// that signal drop.
func (sv *Supervisor) Run(ctx context.Context) {
	sv.wg.Add(5)

	go func() { defer sv.wg.Done(); sv.GameHub.Run(ctx) }()
	go func() { defer sv.wg.Done(); sv.RPCHub.Run(ctx) }()

	go func() {
		defer sv.wg.Done()
		var err error
		if sv.gameIsWS {
			err = sv.GameService.ServeWS(ctx)
		} else {
			err = sv.GameService.Serve(ctx)
		}
		if err != nil {
			sv.logger.Error("game_service_fatal", "error", err)
		}
	}()
	go func() {
		defer sv.wg.Done()
		if err := sv.RPCService.Serve(ctx); err != nil {
			sv.logger.Error("rpc_service_fatal", "error", err)
		}
	}()
	go func() {
		defer sv.wg.Done()
		// The RPC-client Service never accepts; it exists only to host the
		// admission semaphore and vfd/host_id counter that Dial (dial.go)
		// uses, and to let rpchub.Hub satisfy the Dialer interface against
		// it. There is no listener to run, so this goroutine just waits
		// for shutdown and lets in-flight reader/writer pairs drain.
		<-ctx.Done()
		if err := sv.RPCClientSvc.Shutdown(context.Background()); err != nil {
			sv.logger.Warn("rpc_client_service_shutdown", "error", err)
		}
	}()

	<-ctx.Done()
	sv.wg.Wait()
	sv.logger.Info("all_services_closed")
}
