package registry

import (
	"testing"

	"github.com/nodefleet/hubcore/internal/wire"
	"github.com/nodefleet/hubcore/internal/wire/demo"
)

func TestRegistry_InsertLookupRemove(t *testing.T) {
	reg := New()
	ch := make(chan wire.Envelope, 1)
	reg.Insert(101, ch)

	got, ok := reg.Lookup(101)
	if !ok || got == nil {
		t.Fatal("expected entry to be found")
	}
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}

	reg.Remove(101)
	if _, ok := reg.Lookup(101); ok {
		t.Fatal("expected entry to be removed")
	}
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", reg.Len())
	}
}

func TestRegistry_SendDropsWhenFull(t *testing.T) {
	reg := New()
	ch := make(chan wire.Envelope, 1)
	reg.Insert(101, ch)

	env := wire.Envelope{Kind: wire.KindTCP, Session: 101, Msg: demo.Echo{Text: "a"}}
	found, sent := reg.Send(101, env)
	if !found || !sent {
		t.Fatalf("first send: found=%v sent=%v, want true,true", found, sent)
	}

	found, sent = reg.Send(101, env)
	if !found || sent {
		t.Fatalf("second send: found=%v sent=%v, want true,false (channel full)", found, sent)
	}

	found, _ = reg.Send(999, env)
	if found {
		t.Fatal("expected no entry for unknown key")
	}
}
