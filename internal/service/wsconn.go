package service

import (
	"context"
	"io"
	"log/slog"
	"net"
	"time"

	"nhooyr.io/websocket"
)

// wsConn adapts a *websocket.Conn to net.Conn for the WebSocket transport.
//
// This deliberately does not use the library's own websocket.NetConn: that
// adapter closes the connection with StatusUnsupportedData the first time
// it sees a non-binary frame, but this transport requires the opposite for
// this transport — text, ping, pong, and continuation frames are logged and
// ignored, and only a Close frame ends the connection (non-fatally). Read
// loops past every non-binary frame instead of erroring out on it.
type wsConn struct {
	c      *websocket.Conn
	logger *slog.Logger

	readCtx     context.Context
	readCancel  context.CancelFunc
	writeCtx    context.Context
	writeCancel context.CancelFunc

	reader io.Reader
}

func newWSConn(c *websocket.Conn, logger *slog.Logger) *wsConn {
	rctx, rcancel := context.WithCancel(context.Background())
	wctx, wcancel := context.WithCancel(context.Background())
	return &wsConn{c: c, logger: logger, readCtx: rctx, readCancel: rcancel, writeCtx: wctx, writeCancel: wcancel}
}

func (w *wsConn) Read(p []byte) (int, error) {
	for {
		if w.reader == nil {
			typ, r, err := w.c.Reader(w.readCtx)
			if err != nil {
				if websocket.CloseStatus(err) != -1 {
					return 0, io.EOF
				}
				return 0, err
			}
			if typ != websocket.MessageBinary {
				if w.logger != nil {
					w.logger.Info("ws_non_binary_frame_ignored", "type", typ)
				}
				_, _ = io.Copy(io.Discard, r)
				continue
			}
			w.reader = r
		}
		n, err := w.reader.Read(p)
		if err == io.EOF {
			w.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.c.Write(w.writeCtx, websocket.MessageBinary, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	w.readCancel()
	w.writeCancel()
	return w.c.Close(websocket.StatusNormalClosure, "")
}

func (w *wsConn) LocalAddr() net.Addr  { return wsAddr{} }
func (w *wsConn) RemoteAddr() net.Addr { return wsAddr{} }

func (w *wsConn) SetDeadline(t time.Time) error {
	_ = w.SetReadDeadline(t)
	_ = w.SetWriteDeadline(t)
	return nil
}

func (w *wsConn) SetReadDeadline(t time.Time) error {
	w.readCancel()
	if t.IsZero() {
		w.readCtx, w.readCancel = context.WithCancel(context.Background())
		return nil
	}
	w.readCtx, w.readCancel = context.WithDeadline(context.Background(), t)
	return nil
}

func (w *wsConn) SetWriteDeadline(t time.Time) error {
	w.writeCancel()
	if t.IsZero() {
		w.writeCtx, w.writeCancel = context.WithCancel(context.Background())
		return nil
	}
	w.writeCtx, w.writeCancel = context.WithDeadline(context.Background(), t)
	return nil
}

type wsAddr struct{}

func (wsAddr) Network() string { return "websocket" }
func (wsAddr) String() string  { return "websocket" }

var _ net.Conn = (*wsConn)(nil)
