// Command robot is a synthetic TCPROBOT load client (spec.md's
// ServiceTCPRobot), grounded in original_source/robot: it dials robot_num
// concurrent connections against service_addr and drives them with demo
// Echo traffic, standing in for the original's game-logic-aware robots
// that exercised a deployment's game service end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nodefleet/hubcore/internal/logging"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.robotNum <= 0 {
		fmt.Fprintln(os.Stderr, "robot_num is 0; nothing to do")
		return
	}

	sink := logging.NewSink(cfg.logChanSize)
	defer sink.Close()
	l := logging.NewSlogLogger(logging.NewFileLogger(sink, "robot.log", logging.ParseLevel(cfg.logLevel))).With("app", "robot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 1; i <= cfg.robotNum; i++ {
		wg.Add(1)
		go func(identity int) {
			defer wg.Done()
			runRobot(ctx, identity, cfg, l)
		}(i)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	l.Info("shutdown_signal")
	cancel()
	wg.Wait()
	l.Info("shutdown_complete")
}
