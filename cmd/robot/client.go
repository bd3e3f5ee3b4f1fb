package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/nodefleet/hubcore/internal/wire"
	"github.com/nodefleet/hubcore/internal/wire/demo"
)

// runRobot drives one synthetic client for the lifetime of ctx: dial,
// announce with a login-shaped Echo (original_source/robot's client_hub
// sends an S2cLogin as the first message on every new connection), then
// alternate between reading whatever the game service sends back and
// emitting one Echo per tick until ctx is cancelled or the connection
// drops. Unlike the original, a dropped connection ends this robot rather
// than retrying — reconnect-on-drop is not needed to exercise the server
// under load and is left as a possible addition to the harness.
func runRobot(ctx context.Context, identity int, cfg *robotConfig, l *slog.Logger) {
	l = l.With("identity", identity)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.dialTimeout)
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", cfg.gameAddr)
	cancel()
	if err != nil {
		l.Error("dial_failed", "error", err)
		return
	}
	defer conn.Close()
	l.Info("connected", "addr", cfg.gameAddr)

	codec := demo.Codec{}

	login := demo.Echo{Text: fmt.Sprintf("login robot_%d", identity)}
	if err := sendMsg(conn, codec, login); err != nil {
		l.Error("login_send_failed", "error", err)
		return
	}

	readErrCh := make(chan error, 1)
	go func() {
		for {
			msg, err := recvMsg(conn, codec)
			if err != nil {
				readErrCh <- err
				return
			}
			protoID, name := msg.InnerInfo()
			l.Debug("recv", "proto_id", protoID, "name", name)
		}
	}()

	ticker := time.NewTicker(cfg.sendEvery)
	defer ticker.Stop()
	seq := 0
	for {
		select {
		case <-ctx.Done():
			l.Info("shutdown")
			return
		case err := <-readErrCh:
			l.Warn("connection_closed", "error", err)
			return
		case <-ticker.C:
			seq++
			echo := demo.Echo{Text: fmt.Sprintf("robot_%d tick %d", identity, seq)}
			if err := sendMsg(conn, codec, echo); err != nil {
				l.Warn("send_failed", "error", err)
				return
			}
		}
	}
}

func sendMsg(conn net.Conn, codec wire.Codec, msg wire.Message) error {
	body, err := codec.Encode(msg)
	if err != nil {
		return err
	}
	protoID, _ := msg.InnerInfo()
	return wire.WriteFrame(conn, protoID, body)
}

func recvMsg(conn net.Conn, codec wire.Codec) (wire.Message, error) {
	hdr, err := wire.ReadHeader(conn)
	if err != nil {
		return nil, err
	}
	body, err := wire.ReadBody(conn, hdr)
	if err != nil {
		return nil, err
	}
	return codec.Decode(hdr.ProtoID, body)
}
