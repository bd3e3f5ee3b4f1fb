package service

import (
	"context"
	"fmt"
	"net"

	"github.com/nodefleet/hubcore/internal/metrics"
	"github.com/nodefleet/hubcore/internal/rpchub"
	"github.com/nodefleet/hubcore/internal/wire"
)

// Dial implements rpchub.Dialer against this Service: instead of accepting,
// it actively connects to addr and stamps the resulting connection with
// identity as its vfd (the client-service variant of the accept loop). Dial never
// blocks its caller: the actual network dial and the reader/writer spawn
// happen on a fresh goroutine, success is reported via the same Announce
// channel the accept loop uses, and failure is reported exactly once on
// results.
func (s *Service) Dial(ctx context.Context, addr string, identity wire.HostID, results chan<- rpchub.DialResult) {
	go s.dial(ctx, addr, identity, results)
}

func (s *Service) dial(ctx context.Context, addr string, identity wire.HostID, results chan<- rpchub.DialResult) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			results <- rpchub.DialResult{HostID: identity, Err: fmt.Errorf("%w: %v", ErrDial, err)}
			return
		}
	}

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.releasePermit()
		metrics.IncError(metrics.ErrDial)
		results <- rpchub.DialResult{HostID: identity, Err: fmt.Errorf("%w: %v", ErrDial, err)}
		return
	}

	s.spawnPair(ctx, c, wire.VFD(identity))
}

var _ rpchub.Dialer = (*Service)(nil)
