package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/nodefleet/hubcore/internal/metrics"
	"github.com/nodefleet/hubcore/internal/wire"
)

// Reader owns the read half of one connection. It has no reference back to
// its writer or hub: on every decoded frame it tries to hand the envelope to
// ProtoSender and otherwise only ever reports its own termination to the
// caller of Run.
type Reader struct {
	ServiceType  wire.ServiceType
	VFD          wire.VFD
	Codec        wire.Codec
	ProtoSender  chan<- wire.Envelope
	ReadDeadline time.Duration
	Logger       *slog.Logger
	// HubLabel names the owning hub for the hub_ingress_dropped_total metric
	// (e.g. "game", "rpc"); empty is fine, it just labels the series "".
	HubLabel string
}

// kind stamps the msg_kind for frames arriving on this reader's service type.
func (r *Reader) kind() wire.MsgKind { return wire.KindForService(r.ServiceType) }

// Run reads frames from conn until ctx is cancelled or the connection ends.
// A read timeout is treated as a chance to notice cancellation, not as an
// error: Run loops back and tries again. Every other read/decode failure
// terminates the loop and is returned to the caller, which is responsible
// for posting SocketClosed to the owning hub — Run itself never does, so
// the notification survives after this goroutine exits.
func (r *Reader) Run(ctx context.Context, c net.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if r.ReadDeadline > 0 {
			_ = c.SetReadDeadline(time.Now().Add(r.ReadDeadline))
		}

		hdr, err := wire.ReadHeader(c)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			metrics.IncError(metrics.ErrFraming)
			return fmt.Errorf("%w: %v", ErrFraming, err)
		}

		body, err := wire.ReadBody(c, hdr)
		if err != nil {
			metrics.IncError(metrics.ErrConnRead)
			return fmt.Errorf("%w: %v", ErrConnRead, err)
		}

		msg, err := r.Codec.Decode(hdr.ProtoID, body)
		if err != nil {
			metrics.IncError(metrics.ErrCodec)
			return fmt.Errorf("%w: %v", ErrCodec, err)
		}

		env := wire.Envelope{Kind: r.kind(), Session: wire.Session(r.VFD), Msg: msg}
		select {
		case r.ProtoSender <- env:
		default:
			metrics.IncIngressDrop(r.HubLabel)
			if r.Logger != nil {
				r.Logger.Warn("reader_send_dropped", "vfd", r.VFD, "msg_kind", env.Kind.String())
			}
		}
	}
}
