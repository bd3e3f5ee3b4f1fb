package gamehub

import (
	"context"
	"testing"
	"time"

	"github.com/nodefleet/hubcore/internal/scripthost"
	"github.com/nodefleet/hubcore/internal/wire"
	"github.com/nodefleet/hubcore/internal/wire/demo"
)

type recordingUpcalls struct {
	tcp   chan wire.Envelope
	timer chan []uint64
}

func newRecordingUpcalls() *recordingUpcalls {
	return &recordingUpcalls{tcp: make(chan wire.Envelope, 8), timer: make(chan []uint64, 8)}
}

func (r *recordingUpcalls) TCPMsg(vfd wire.VFD, protoID wire.ProtoID, name string, payload wire.Message) {
	r.tcp <- wire.Envelope{Session: wire.Session(vfd), Msg: payload}
}
func (r *recordingUpcalls) RPCMsg(bool, wire.HostID, string, wire.Session, string, string) {}
func (r *recordingUpcalls) TimerMsg(ids []uint64)                                          { r.timer <- ids }

var _ scripthost.Upcalls = (*recordingUpcalls)(nil)

func TestHub_GameSocketClosedEvictsGameRegistryOnly(t *testing.T) {
	gameAnnounce := make(chan Announce, 1)
	gameMsg := make(chan wire.Envelope, 1)
	rpcAnnounce := make(chan Announce, 1)
	rpcMsg := make(chan wire.Envelope, 1)
	allClosed := make(chan struct{})

	up := newRecordingUpcalls()
	h := New(10, up, gameAnnounce, gameMsg, rpcAnnounce, rpcMsg, allClosed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	out := make(chan wire.Envelope, 1)
	gameAnnounce <- Announce{VFD: 101, Sender: out}
	rpcAnnounce <- Announce{VFD: 101, Sender: out} // same session key, distinct registry

	time.Sleep(50 * time.Millisecond)
	if h.GameConns.Len() != 1 || h.RPCConns.Len() != 1 {
		t.Fatalf("expected both registries populated, game=%d rpc=%d", h.GameConns.Len(), h.RPCConns.Len())
	}

	gameMsg <- wire.Envelope{Kind: wire.KindSocketClosed, Session: 101}
	time.Sleep(50 * time.Millisecond)

	if h.GameConns.Len() != 0 {
		t.Fatal("expected game registry entry evicted by game-side SocketClosed")
	}
	if h.RPCConns.Len() != 1 {
		t.Fatal("expected RPC registry entry untouched by game-side SocketClosed")
	}
}

func TestHub_DispatchesTCPMsgToUpcalls(t *testing.T) {
	gameAnnounce := make(chan Announce, 1)
	gameMsg := make(chan wire.Envelope, 1)
	rpcAnnounce := make(chan Announce, 1)
	rpcMsg := make(chan wire.Envelope, 1)
	allClosed := make(chan struct{})

	up := newRecordingUpcalls()
	h := New(10, up, gameAnnounce, gameMsg, rpcAnnounce, rpcMsg, allClosed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	gameMsg <- wire.Envelope{Kind: wire.KindTCP, Session: 101, Msg: demo.Echo{Text: "hi"}}
	select {
	case env := <-up.tcp:
		if env.Msg.(demo.Echo).Text != "hi" {
			t.Fatalf("got %+v", env.Msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for TCPMsg upcall")
	}
}

func TestHub_ClosesAllServicesClosedOnChannelClose(t *testing.T) {
	gameAnnounce := make(chan Announce)
	gameMsg := make(chan wire.Envelope)
	rpcAnnounce := make(chan Announce)
	rpcMsg := make(chan wire.Envelope)
	allClosed := make(chan struct{})

	h := New(10, scripthost.Noop{}, gameAnnounce, gameMsg, rpcAnnounce, rpcMsg, allClosed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	close(gameMsg)

	select {
	case <-allClosed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for AllServicesClosed")
	}
}
