package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/nodefleet/hubcore/internal/config"
)

var errConfig = errors.New("config")

// robotConfig is the synthetic-client counterpart of cmd/hubd's appConfig:
// it reads the same key=value file (spec.md §6.6) but only the keys a load
// client needs — robot_num and service_addr, mirroring the original robot
// binary's own reliance on those two keys (original_source/robot/src/
// services/client_hub.rs), plus log_level and log_chan_size for its own
// log file.
type robotConfig struct {
	gameAddr    string
	robotNum    int
	logLevel    int
	logChanSize int
	dialTimeout time.Duration
	sendEvery   time.Duration
}

func parseFlags() (*robotConfig, error) {
	path := flag.String("config", "etc/sysconfig.conf", "path to the key=value config file")
	robotNum := flag.Int("robot-num", 0, "override robot_num from the config file (0 = use config value)")
	flag.Parse()

	raw, err := config.Load(*path)
	if err != nil {
		return nil, err
	}
	cfg, err := newRobotConfig(raw)
	if err != nil {
		return nil, err
	}
	if *robotNum > 0 {
		cfg.robotNum = *robotNum
	}
	return cfg, nil
}

func newRobotConfig(raw *config.Config) (*robotConfig, error) {
	cfg := &robotConfig{}

	var ok bool
	cfg.gameAddr, ok = raw.String("service_addr")
	if !ok {
		return nil, fmt.Errorf("%w: service_addr missing", errConfig)
	}
	cfg.robotNum = raw.IntOr("robot_num", 0)
	cfg.logLevel = raw.IntOr("log_level", 2)
	cfg.logChanSize = raw.IntOr("log_chan_size", 1024)
	cfg.dialTimeout = 5 * time.Second
	cfg.sendEvery = time.Second

	if cfg.robotNum < 0 {
		return nil, fmt.Errorf("%w: robot_num must be >= 0 (got %d)", errConfig, cfg.robotNum)
	}
	return cfg, nil
}
