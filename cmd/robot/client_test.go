package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/nodefleet/hubcore/internal/wire"
	"github.com/nodefleet/hubcore/internal/wire/demo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRobot_SendsLoginAndTicks(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	cfg := &robotConfig{
		gameAddr:    ln.Addr().String(),
		robotNum:    1,
		dialTimeout: time.Second,
		sendEvery:   10 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runRobot(ctx, 1, cfg, discardLogger())
	}()

	var conn net.Conn
	select {
	case conn = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("server side never accepted connection")
	}
	defer conn.Close()

	codec := demo.Codec{}
	hdr, err := wire.ReadHeader(conn)
	if err != nil {
		t.Fatalf("read login header: %v", err)
	}
	body, err := wire.ReadBody(conn, hdr)
	if err != nil {
		t.Fatalf("read login body: %v", err)
	}
	msg, err := codec.Decode(hdr.ProtoID, body)
	if err != nil {
		t.Fatalf("decode login: %v", err)
	}
	echo, ok := msg.(demo.Echo)
	if !ok {
		t.Fatalf("expected Echo login, got %T", msg)
	}
	if echo.Text != "login robot_1" {
		t.Fatalf("unexpected login text: %q", echo.Text)
	}

	// a second message should arrive from the tick loop before shutdown.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := wire.ReadHeader(conn); err != nil {
		t.Fatalf("expected a tick message, got error: %v", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runRobot did not exit after cancel")
	}
}
