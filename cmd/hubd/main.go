package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nodefleet/hubcore/internal/metrics"
)

// Helper implementations live in dedicated files: version.go, config.go,
// errors.go, logger.go, metrics_logger.go, supervisor_init.go.

func main() {
	cfg, showVersion, err := parseFlags()
	if showVersion {
		fmt.Printf("hubd %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	sink, l := setupLogging(cfg)
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.metricsLogEvery, l, &wg)

	sv, err := initSupervisor(cfg, l)
	if err != nil {
		l.Error("startup_fatal", "error", err)
		os.Exit(1)
	}

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metricsSrv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = metricsSrv.Shutdown(context.Background()) }()
	}

	svDone := make(chan struct{})
	go func() {
		defer close(svDone)
		sv.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()

	<-svDone
	wg.Wait()
	l.Info("shutdown_complete")
}
