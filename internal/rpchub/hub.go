// Package rpchub implements RpcClientHub: the egress side of peer-to-peer
// RPC. It lazily dials a peer on first use, buffers outbound messages while
// the dial is in flight, and flushes them in enqueue order once the
// connection is registered.
package rpchub

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/nodefleet/hubcore/internal/metrics"
	"github.com/nodefleet/hubcore/internal/registry"
	"github.com/nodefleet/hubcore/internal/wire"
)

// pendingCap bounds the per-destination buffer held while a dial is in
// flight; the 501st message and beyond are dropped with a log.
const pendingCap = 500

// dialState mirrors the source's proceeding_connections marker: absent (no
// entry), dialing (1), connected (2).
type dialState int

const (
	dialAbsent dialState = iota
	dialDialing
	dialConnected
)

// Announce is a new outbound-connection publication: the dial succeeded and
// the destination host_id (carried in the VFD field, widened per the
// session-equals-host_id convention) now has a writer to drain.
type Announce = wire.Announce

// DialResult reports the outcome of a Dialer.Dial call that failed
// asynchronously, after the select loop had already moved on. A successful
// dial is reported via Announce instead; DialResult is only ever sent for
// failures so the hub can clear its dialing marker and let a later send
// re-trigger the attempt.
type DialResult struct {
	HostID wire.HostID
	Err    error
}

// Dialer initiates an outbound connection to addr, using identity as the
// vfd/host_id stamped on the resulting connection. Dial must not block: it
// reports success by eventually publishing an Announce on the hub's Announce
// channel (via the same Service plumbing the accept loop uses) and reports
// failure by sending exactly one DialResult on results.
type Dialer interface {
	Dial(ctx context.Context, addr string, identity wire.HostID, results chan<- DialResult)
}

// Hub owns the peer ConnRegistry (keyed by host_id), the pending-message
// buffer, and the dial-state machine. Every field below is read and written
// only from the Run goroutine.
type Hub struct {
	LocalHostID wire.HostID
	Conns       *registry.Registry
	Dialer      Dialer

	Announce <-chan Announce
	Outbound <-chan wire.Envelope
	Results  chan DialResult

	Logger            *slog.Logger
	AllServicesClosed chan<- struct{}

	pending map[wire.HostID][]wire.Envelope
	states  map[wire.HostID]dialState
}

// New builds a Hub. Results must be a channel the caller also hands to every
// Dialer.Dial call the hub makes, so failures loop back to this instance.
func New(localHostID wire.HostID, dialer Dialer, announce <-chan Announce, outbound <-chan wire.Envelope, allServicesClosed chan<- struct{}, logger *slog.Logger) *Hub {
	return &Hub{
		LocalHostID:       localHostID,
		Conns:             registry.New(),
		Dialer:            dialer,
		Announce:          announce,
		Outbound:          outbound,
		Results:           make(chan DialResult, 16),
		Logger:            logger,
		AllServicesClosed: allServicesClosed,
		pending:           make(map[wire.HostID][]wire.Envelope),
		states:            make(map[wire.HostID]dialState),
	}
}

// Run drives the select loop until ctx is cancelled or Announce/Outbound
// closes.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		if h.AllServicesClosed != nil {
			close(h.AllServicesClosed)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case a, ok := <-h.Announce:
			if !ok {
				h.logInfo("announce_closed")
				return
			}
			h.onConnected(a)

		case env, ok := <-h.Outbound:
			if !ok {
				h.logInfo("outbound_closed")
				return
			}
			h.onOutbound(env)

		case res := <-h.Results:
			h.onDialResult(res)
		}
	}
}

func (h *Hub) onConnected(a Announce) {
	hostID := wire.HostID(a.VFD)
	h.Conns.Insert(wire.Session(a.VFD), a.Sender)
	h.states[hostID] = dialConnected
	metrics.IncDialSuccess()
	metrics.SetActive("rpc_client", h.Conns.Len())
	h.logInfo("new_rpc_client_connection", "host_id", hostID)

	buffered := h.pending[hostID]
	delete(h.pending, hostID)
	metrics.SetPendingDepth(hostIDLabel(hostID), 0)
	for _, env := range buffered {
		select {
		case a.Sender <- env:
		default:
			metrics.IncEgressDrop("rpc_client")
			h.logInfo("flush_send_dropped", "host_id", hostID)
		}
	}
}

func (h *Hub) onOutbound(env wire.Envelope) {
	dest := wire.HostID(env.Session)

	if env.Kind == wire.KindSocketClosed {
		h.Conns.Remove(env.Session)
		delete(h.states, dest)
		metrics.IncDisconnected("rpc_client")
		metrics.SetActive("rpc_client", h.Conns.Len())
		h.logInfo("rpc_client_connection_closed", "host_id", dest)
		return
	}

	if dest == h.LocalHostID {
		h.logInfo("route_self_rejected", "host_id", dest)
		return
	}

	if env.Kind != wire.KindRPC && env.Kind != wire.KindRPCClient {
		h.logInfo("unsupported_msg_kind", "host_id", dest, "kind", env.Kind.String())
		return
	}

	if found, sent := h.Conns.Send(env.Session, env); found {
		if !sent {
			metrics.IncEgressDrop("rpc_client")
			h.logInfo("try_send_rpc_failed", "host_id", dest)
		}
		return
	}

	switch h.states[dest] {
	case dialDialing:
		h.logInfo("dial_in_progress", "host_id", dest)
	case dialConnected:
		// Registry entry is gone even though we last saw it connected
		// (SocketClosed raced this send); treat as absent and redial.
		h.startDial(dest, env)
		return
	default:
		h.startDial(dest, env)
		return
	}

	h.enqueuePending(dest, env)
}

func (h *Hub) startDial(dest wire.HostID, triggering wire.Envelope) {
	addressed, ok := triggering.Msg.(wire.AddressedMessage)
	addr := ""
	if ok {
		addr = addressed.DialAddr()
	}
	if addr == "" {
		h.logInfo("wrong_addr", "host_id", dest)
		return
	}
	h.states[dest] = dialDialing
	metrics.IncDialAttempt()
	h.Dialer.Dial(context.Background(), addr, dest, h.Results)
	h.logInfo("rpc_client_dial_start", "host_id", dest, "addr", addr)
	h.enqueuePending(dest, triggering)
}

func (h *Hub) enqueuePending(dest wire.HostID, env wire.Envelope) {
	buf := h.pending[dest]
	if len(buf) >= pendingCap {
		metrics.IncPendingDropped()
		h.logInfo("too_many_delay_messages_dumped", "host_id", dest)
		return
	}
	h.pending[dest] = append(buf, env)
	metrics.SetPendingDepth(hostIDLabel(dest), len(h.pending[dest]))
}

func (h *Hub) onDialResult(res DialResult) {
	if res.Err == nil {
		return
	}
	delete(h.states, res.HostID)
	metrics.IncDialFailure()
	h.logInfo("dial_failed", "host_id", res.HostID, "error", res.Err)
}

func (h *Hub) logInfo(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Info(msg, args...)
	}
}

// hostIDLabel renders a HostID as a Prometheus label value.
func hostIDLabel(id wire.HostID) string { return strconv.FormatInt(int64(id), 10) }
