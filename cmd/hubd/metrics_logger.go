package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nodefleet/hubcore/internal/metrics"
)

// startMetricsLogger periodically logs the local metrics snapshot, for
// deployments that don't scrape Prometheus (mirrors the teacher's
// log-metrics-interval fallback).
func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"accepted", snap.Accepted,
					"connected", snap.Connected,
					"disconnected", snap.Disconnected,
					"handshake_fail", snap.HandshakeFail,
					"hub_ingress_drops", snap.HubIngressDrops,
					"hub_egress_drops", snap.HubEgressDrops,
					"rpc_dial_attempts", snap.RPCDialAttempts,
					"rpc_dial_success", snap.RPCDialSuccess,
					"rpc_dial_failure", snap.RPCDialFailure,
					"timer_fired", snap.TimerFired,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
