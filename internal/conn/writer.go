package conn

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/nodefleet/hubcore/internal/metrics"
	"github.com/nodefleet/hubcore/internal/wire"
)

// Writer owns the write half of one connection. It receives encoded
// envelopes from its owning hub's registry entry and has no reference back
// to the hub or its paired reader beyond the two channels passed to Run.
type Writer struct {
	ServiceType wire.ServiceType
	VFD         wire.VFD
	Codec       wire.Codec
	// WellKnownTargets allows sessions below 100 through the from_vfd check
	// regardless of VFD; this carves out the WebSocket writer so
	// well-known broadcast targets can be addressed without impersonating a
	// specific connection.
	WellKnownTargets bool
	Logger           *slog.Logger
}

// compatible reports whether env may be written by this writer, per the
// from_vfd and msg_kind compatibility rules.
func (w *Writer) compatible(env wire.Envelope) bool {
	if env.Session != wire.Session(w.VFD) {
		if !(w.WellKnownTargets && env.Session < 100) {
			if w.Logger != nil {
				w.Logger.Info("writer_wrong_vfd", "vfd", w.VFD, "from_session", env.Session)
			}
			return false
		}
	}
	var ok bool
	switch w.ServiceType {
	case wire.ServiceTCP:
		ok = env.Kind == wire.KindTCP
	case wire.ServiceRPC, wire.ServiceRPCClient:
		ok = env.Kind == wire.KindRPC || env.Kind == wire.KindRPCClient
	default:
		ok = false
	}
	if !ok && w.Logger != nil {
		w.Logger.Info("writer_wrong_msg_kind", "vfd", w.VFD, "service_type", w.ServiceType.String(), "msg_kind", env.Kind.String())
	}
	return ok
}

// Run writes envelopes from msgReceiver to c until ctx is cancelled,
// pairdrop fires (the paired reader has exited), or a write error occurs.
// Every accepted envelope is encoded, written header-then-body, and the
// underlying buffered writer is flushed before the next receive.
func (w *Writer) Run(ctx context.Context, c net.Conn, msgReceiver <-chan wire.Envelope, pairdrop <-chan struct{}) error {
	bw := bufio.NewWriter(c)
	for {
		select {
		case env, ok := <-msgReceiver:
			if !ok {
				return nil
			}
			if !w.compatible(env) {
				continue
			}
			protoID, _ := env.Msg.InnerInfo()
			body, err := w.Codec.Encode(env.Msg)
			if err != nil {
				metrics.IncError(metrics.ErrCodec)
				return fmt.Errorf("%w: %v", ErrCodec, err)
			}
			if err := wire.WriteFrame(bw, protoID, body); err != nil {
				metrics.IncError(metrics.ErrConnWrite)
				return fmt.Errorf("%w: %v", ErrConnWrite, err)
			}
			if err := bw.Flush(); err != nil {
				metrics.IncError(metrics.ErrConnWrite)
				return fmt.Errorf("%w: %v", ErrConnWrite, err)
			}
		case <-pairdrop:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
