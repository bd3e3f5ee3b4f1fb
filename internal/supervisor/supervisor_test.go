package supervisor

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/nodefleet/hubcore/internal/scripthost"
	"github.com/nodefleet/hubcore/internal/wire"
	"github.com/nodefleet/hubcore/internal/wire/demo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// TestSupervisorRunShutsDownCleanly exercises scenario 6 (Shutdown drains):
// with live connections against the game listener, cancelling the
// supervisor's context must let Run return instead of hanging.
func TestSupervisorRunShutsDownCleanly(t *testing.T) {
	sv := New(Config{
		HostID:          1,
		FPS:             10,
		GameAddr:        "127.0.0.1:0",
		RPCAddr:         "127.0.0.1:0",
		ConnMsgChanSize: 8,
		Codec:           demo.Codec{},
		Upcalls:         scripthost.Noop{},
		Logger:          testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() { sv.Run(ctx); close(runDone) }()

	addr := waitForGameAddr(t, sv)
	conns := make([]net.Conn, 0, 5)
	for i := 0; i < 5; i++ {
		c, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conns = append(conns, c)
	}

	cancel()

	select {
	case <-runDone:
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor.Run did not return after shutdown")
	}
	for _, c := range conns {
		_ = c.Close()
	}
}

func waitForGameAddr(t *testing.T, sv *Supervisor) string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a := sv.GameService.Addr(); a != "127.0.0.1:0" && a != "" {
			return a
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for game service address")
	return ""
}

var _ wire.Codec = demo.Codec{}
