package rpchub

import (
	"context"
	"testing"
	"time"

	"github.com/nodefleet/hubcore/internal/wire"
	"github.com/nodefleet/hubcore/internal/wire/demo"
)

type fakeDialer struct {
	calls chan string
}

func (d *fakeDialer) Dial(ctx context.Context, addr string, identity wire.HostID, results chan<- DialResult) {
	d.calls <- addr
}

func rpcSendEnvelope(toHost wire.HostID, toAddr string, n int) wire.Envelope {
	return wire.Envelope{
		Kind:    wire.KindRPC,
		Session: wire.Session(toHost),
		Msg: demo.RpcSend{
			FromHost: 1,
			ToHost:   toHost,
			ToAddr:   toAddr,
			Func:     "Greet",
			Args:     string(rune('0' + n)),
		},
	}
}

func TestRpcClientHub_BuffersWhileDialingAndFlushesInOrder(t *testing.T) {
	announce := make(chan Announce, 1)
	outbound := make(chan wire.Envelope, 10)
	allClosed := make(chan struct{})
	dialer := &fakeDialer{calls: make(chan string, 1)}

	h := New(1, dialer, announce, outbound, allClosed, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	outbound <- rpcSendEnvelope(2, "10.0.0.2:9000", 0)
	outbound <- rpcSendEnvelope(2, "10.0.0.2:9000", 1)
	outbound <- rpcSendEnvelope(2, "10.0.0.2:9000", 2)

	select {
	case addr := <-dialer.calls:
		if addr != "10.0.0.2:9000" {
			t.Fatalf("dial addr = %q, want 10.0.0.2:9000", addr)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dial to start")
	}

	sink := make(chan wire.Envelope, 10)
	announce <- Announce{VFD: 2, Sender: sink}

	for i := 0; i < 3; i++ {
		select {
		case env := <-sink:
			got := env.Msg.(demo.RpcSend).Args
			want := string(rune('0' + i))
			if got != want {
				t.Fatalf("flush order: message %d args = %q, want %q", i, got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for flushed message %d", i)
		}
	}
}

func TestRpcClientHub_RejectsRouteToSelf(t *testing.T) {
	announce := make(chan Announce, 1)
	outbound := make(chan wire.Envelope, 1)
	allClosed := make(chan struct{})
	dialer := &fakeDialer{calls: make(chan string, 1)}

	h := New(2, dialer, announce, outbound, allClosed, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	outbound <- rpcSendEnvelope(2, "10.0.0.2:9000", 0)

	select {
	case <-dialer.calls:
		t.Fatal("expected no dial attempt for self-routed message")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRpcClientHub_DropsBeyondPendingCap(t *testing.T) {
	announce := make(chan Announce, 1)
	outbound := make(chan wire.Envelope, pendingCap+10)
	allClosed := make(chan struct{})
	dialer := &fakeDialer{calls: make(chan string, 1)}

	h := New(1, dialer, announce, outbound, allClosed, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	for i := 0; i < pendingCap+5; i++ {
		outbound <- rpcSendEnvelope(2, "10.0.0.2:9000", 0)
	}
	<-dialer.calls

	sink := make(chan wire.Envelope, pendingCap+10)
	time.Sleep(100 * time.Millisecond) // let the hub drain the outbound queue
	announce <- Announce{VFD: 2, Sender: sink}

	deadline := time.After(time.Second)
	count := 0
loop:
	for {
		select {
		case <-sink:
			count++
		case <-deadline:
			break loop
		default:
			if count > 0 {
				break loop
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	if count != pendingCap {
		t.Fatalf("flushed %d messages, want %d (cap)", count, pendingCap)
	}
}

func TestRpcClientHub_SocketClosedEvictsRegistryAndDialState(t *testing.T) {
	announce := make(chan Announce, 1)
	outbound := make(chan wire.Envelope, 2)
	allClosed := make(chan struct{})
	dialer := &fakeDialer{calls: make(chan string, 1)}

	h := New(1, dialer, announce, outbound, allClosed, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	sink := make(chan wire.Envelope, 1)
	announce <- Announce{VFD: 2, Sender: sink}
	time.Sleep(50 * time.Millisecond)

	outbound <- wire.Envelope{Kind: wire.KindSocketClosed, Session: 2}
	time.Sleep(50 * time.Millisecond)

	if _, found := h.Conns.Lookup(2); found {
		t.Fatal("expected registry entry evicted")
	}

	// A subsequent send should trigger a fresh dial, proving the dial
	// state was cleared too.
	outbound <- rpcSendEnvelope(2, "10.0.0.2:9000", 0)
	select {
	case <-dialer.calls:
	case <-time.After(time.Second):
		t.Fatal("expected a fresh dial after SocketClosed cleared dial state")
	}
}
