package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/nodefleet/hubcore/internal/config"
	"github.com/nodefleet/hubcore/internal/logging"
)

// appConfig is the fully-typed view of the key=value file (spec.md §6.6)
// this process needs. Every field except metricsAddr (set from the
// --metrics-addr flag) comes from one config key; validate applies the same
// fail-fast startup discipline the teacher's flag validation used,
// translated onto the config file's keys.
type appConfig struct {
	raw *config.Config

	hostID          int32
	gameAddr        string
	rpcAddr         string
	maxConnection   int64
	connMsgChanSize int
	logLevel        int
	logChanSize     int
	fps             int
	isWS            bool
	isSSL           bool
	certFile        string
	keyFile         string
	robotNum        int
	logicPath       string
	metricsAddr     string
	readDeadline    time.Duration
	metricsLogEvery time.Duration
}

// parseFlags parses the --config flag (default "etc/sysconfig.conf",
// matching the original robot/server binaries' working-directory-relative
// convention) and --metrics-addr, --version, then loads and validates the
// key=value file at that path.
func parseFlags() (*appConfig, bool, error) {
	path := flag.String("config", "etc/sysconfig.conf", "path to the key=value config file")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP listen address (e.g. :9100); empty disables")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		return nil, true, nil
	}

	raw, err := config.Load(*path)
	if err != nil {
		return nil, false, err
	}
	cfg, err := newAppConfig(raw)
	if err != nil {
		return nil, false, err
	}
	cfg.metricsAddr = *metricsAddr
	return cfg, false, nil
}

func newAppConfig(raw *config.Config) (*appConfig, error) {
	cfg := &appConfig{raw: raw}

	hostID, ok := raw.Int("host_id")
	if !ok {
		return nil, fmt.Errorf("%w: host_id missing or invalid", errConfig)
	}
	cfg.hostID = int32(hostID)

	var ok2 bool
	cfg.gameAddr, ok2 = raw.String("service_addr")
	if !ok2 {
		return nil, fmt.Errorf("%w: service_addr missing", errConfig)
	}
	cfg.rpcAddr, ok2 = raw.String("rpc_service_addr")
	if !ok2 {
		return nil, fmt.Errorf("%w: rpc_service_addr missing", errConfig)
	}

	cfg.maxConnection = int64(raw.IntOr("max_connection", 0))
	cfg.connMsgChanSize = raw.IntOr("conn_msg_chan_size", 256)
	cfg.logLevel = raw.IntOr("log_level", int(logging.LevelInfo))
	cfg.logChanSize = raw.IntOr("log_chan_size", 1024)
	cfg.fps = raw.IntOr("fps", 10)
	cfg.isWS = raw.Bool("is_ws")
	cfg.isSSL = raw.Bool("is_ssl")
	cfg.certFile, _ = raw.String("certificate_file")
	cfg.keyFile, _ = raw.String("privatekey_file")
	cfg.robotNum = raw.IntOr("robot_num", 0)
	cfg.logicPath, _ = raw.String("logic_path")
	cfg.readDeadline = time.Duration(raw.IntOr("read_deadline_sec", 60)) * time.Second
	cfg.metricsLogEvery = time.Duration(raw.IntOr("metrics_log_interval_sec", 30)) * time.Second

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open listeners or certificate files — only checks
// value ranges, mirroring the teacher's flag-validation split between
// syntax (here) and runtime failures (surfaced by Serve/LoadTLSConfig).
func (c *appConfig) validate() error {
	if c.gameAddr == "" {
		return fmt.Errorf("%w: service_addr must not be empty", errConfig)
	}
	if c.rpcAddr == "" {
		return fmt.Errorf("%w: rpc_service_addr must not be empty", errConfig)
	}
	if c.maxConnection < 0 {
		return fmt.Errorf("%w: max_connection must be >= 0 (got %d)", errConfig, c.maxConnection)
	}
	if c.connMsgChanSize <= 0 {
		return fmt.Errorf("%w: conn_msg_chan_size must be > 0 (got %d)", errConfig, c.connMsgChanSize)
	}
	if c.logLevel < 1 || c.logLevel > 4 {
		return fmt.Errorf("%w: log_level must be in 1..4 (got %d)", errConfig, c.logLevel)
	}
	if c.logChanSize <= 0 {
		return fmt.Errorf("%w: log_chan_size must be > 0 (got %d)", errConfig, c.logChanSize)
	}
	if c.fps <= 0 {
		return fmt.Errorf("%w: fps must be > 0 (got %d)", errConfig, c.fps)
	}
	if c.readDeadline <= 0 {
		return fmt.Errorf("%w: read_deadline_sec must be > 0 (got %s)", errConfig, c.readDeadline)
	}
	if c.isSSL && (c.certFile == "" || c.keyFile == "") {
		return fmt.Errorf("%w: is_ssl=true requires certificate_file and privatekey_file", errConfig)
	}
	if c.robotNum < 0 {
		return fmt.Errorf("%w: robot_num must be >= 0 (got %d)", errConfig, c.robotNum)
	}
	return nil
}
