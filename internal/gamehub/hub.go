// Package gamehub implements the GameHub event loop: the single goroutine
// that multiplexes client and peer traffic into the embedded scripted
// business layer and advances the timer wheel on every heartbeat.
package gamehub

import (
	"context"
	"log/slog"
	"time"

	"github.com/nodefleet/hubcore/internal/metrics"
	"github.com/nodefleet/hubcore/internal/registry"
	"github.com/nodefleet/hubcore/internal/scripthost"
	"github.com/nodefleet/hubcore/internal/timerwheel"
	"github.com/nodefleet/hubcore/internal/wire"
)

// Announce is a Service's new-connection publication to this hub. The
// sender is always published before any decoded message for that vfd can
// reach MsgChan (the ordering guarantee the accept loop provides), and GameHub relies on that
// ordering for nothing beyond registering the vfd before any Tcp/Rpc-kind
// envelope naming it arrives.
type Announce = wire.Announce

// Hub owns the game ConnRegistry, the RPC-inbound ConnRegistry, the timer
// wheel, and the business-layer upcalls. It has no exported mutable state:
// everything is touched only from the Run goroutine.
type Hub struct {
	GameConns *registry.Registry
	RPCConns  *registry.Registry
	Timers    *timerwheel.State
	Upcalls   scripthost.Upcalls

	GameAnnounce <-chan Announce
	GameMsg      <-chan wire.Envelope
	RPCAnnounce  <-chan Announce
	RPCMsg       <-chan wire.Envelope

	HeartbeatPeriod time.Duration
	Logger          *slog.Logger

	// AllServicesClosed is closed by Run when it terminates, participating
	// in the supervisor's all_services_closed rendezvous.
	AllServicesClosed chan<- struct{}
}

// New builds a Hub with fps-derived heartbeat period and fresh registries.
func New(fps int, upcalls scripthost.Upcalls, gameAnnounce <-chan Announce, gameMsg <-chan wire.Envelope, rpcAnnounce <-chan Announce, rpcMsg <-chan wire.Envelope, allServicesClosed chan<- struct{}, logger *slog.Logger) *Hub {
	if fps <= 0 {
		fps = 10
	}
	return &Hub{
		GameConns:         registry.New(),
		RPCConns:          registry.New(),
		Timers:            timerwheel.New(fps),
		Upcalls:           upcalls,
		GameAnnounce:      gameAnnounce,
		GameMsg:           gameMsg,
		RPCAnnounce:       rpcAnnounce,
		RPCMsg:            rpcMsg,
		HeartbeatPeriod:   time.Duration(1000/fps) * time.Millisecond,
		Logger:            logger,
		AllServicesClosed: allServicesClosed,
	}
}

// Run drives the fair select loop until ctx is cancelled or any of the four
// channels closes. On exit it closes AllServicesClosed, if set.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		if h.AllServicesClosed != nil {
			close(h.AllServicesClosed)
		}
	}()

	ticker := time.NewTicker(h.HeartbeatPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case a, ok := <-h.GameAnnounce:
			if !ok {
				h.logInfo("game_announce_closed")
				return
			}
			h.GameConns.Insert(wire.Session(a.VFD), a.Sender)
			metrics.IncConnected("game")
			metrics.SetActive("game", h.GameConns.Len())
			h.logInfo("new_game_connection", "vfd", a.VFD)

		case env, ok := <-h.GameMsg:
			if !ok {
				h.logInfo("game_msg_closed")
				return
			}
			if env.Kind == wire.KindSocketClosed {
				// Conservative resolution of the cross-eviction ambiguity:
				// a game-side close evicts the game registry.
				h.GameConns.Remove(env.Session)
				metrics.IncDisconnected("game")
				metrics.SetActive("game", h.GameConns.Len())
				h.logInfo("game_connection_closed", "vfd", env.Session)
				continue
			}
			protoID, name := env.Msg.InnerInfo()
			h.Upcalls.TCPMsg(wire.VFD(env.Session), protoID, name, env.Msg)

		case a, ok := <-h.RPCAnnounce:
			if !ok {
				h.logInfo("rpc_announce_closed")
				return
			}
			h.RPCConns.Insert(wire.Session(a.VFD), a.Sender)
			metrics.IncConnected("rpc")
			metrics.SetActive("rpc", h.RPCConns.Len())
			h.logInfo("new_rpc_connection", "vfd", a.VFD)

		case env, ok := <-h.RPCMsg:
			if !ok {
				h.logInfo("rpc_msg_closed")
				return
			}
			if env.Kind == wire.KindSocketClosed {
				h.RPCConns.Remove(env.Session)
				metrics.IncDisconnected("rpc")
				metrics.SetActive("rpc", h.RPCConns.Len())
				h.logInfo("rpc_connection_closed", "vfd", env.Session)
				continue
			}
			h.dispatchRPC(env)

		case t := <-ticker.C:
			now := t.UnixMilli()
			if ids := h.Timers.Update(now); ids != nil {
				metrics.AddTimerFired(len(ids))
				h.Upcalls.TimerMsg(ids)
			}
		}
	}
}

// rpcFielder is implemented by the RPC-carrying message variants (RpcSend,
// RpcResp); messages that do not carry peer-call fields are logged and
// dropped rather than reaching Upcalls.RPCMsg.
type rpcFielder interface {
	RPCFields() (isSend bool, fromHost wire.HostID, fromAddr, fn, args string)
}

func (h *Hub) dispatchRPC(env wire.Envelope) {
	msg, ok := env.Msg.(rpcFielder)
	if !ok {
		h.logInfo("rpc_dispatch_unsupported_message", "session", env.Session)
		return
	}
	isSend, fromHost, fromAddr, fn, args := msg.RPCFields()
	h.Upcalls.RPCMsg(isSend, fromHost, fromAddr, env.Session, fn, args)
}

// SendToVFD implements scripthost.ConnSender against the game registry,
// using the standard non-blocking try-send backpressure policy.
func (h *Hub) SendToVFD(vfd wire.VFD, kind wire.MsgKind, msg wire.Message) error {
	found, sent := h.GameConns.Send(wire.Session(vfd), wire.Envelope{Kind: kind, Session: wire.Session(vfd), Msg: msg})
	if !found {
		return errUnknownVFD
	}
	if !sent {
		metrics.IncEgressDrop("game")
		return errChannelFull
	}
	return nil
}

// AddTimer implements scripthost.TimerControl.
func (h *Hub) AddTimer(beginMS, freqMS int64) uint64 {
	id := h.Timers.AddTimer(time.Now().UnixMilli(), beginMS, freqMS)
	if id == 0 {
		metrics.IncTimerRejected()
	}
	return id
}

// RemoveTimer implements scripthost.TimerControl.
func (h *Hub) RemoveTimer(id uint64) { h.Timers.RemoveTimer(id) }

func (h *Hub) logInfo(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Info(msg, args...)
	}
}

var (
	errUnknownVFD  = hubError("gamehub: unknown vfd")
	errChannelFull = hubError("gamehub: per-connection channel full")
)

type hubError string

func (e hubError) Error() string { return string(e) }

var (
	_ scripthost.ConnSender   = (*Hub)(nil)
	_ scripthost.TimerControl = (*Hub)(nil)
)
