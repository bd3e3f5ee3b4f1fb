package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/nodefleet/hubcore/internal/scripthost"
	"github.com/nodefleet/hubcore/internal/service"
	"github.com/nodefleet/hubcore/internal/supervisor"
	"github.com/nodefleet/hubcore/internal/wire"
	"github.com/nodefleet/hubcore/internal/wire/demo"
)

// initSupervisor translates the parsed config into a supervisor.Config and
// builds the Supervisor. The business layer is out of scope (spec.md §1),
// so Upcalls is scripthost.Noop until a logic_path-backed binding exists;
// the demo codec stands in for the generated (proto_id, bytes) codec
// spec.md §6.4 treats as an external collaborator. A certificate/key load
// failure is a ConfigError (spec.md §7: "fatal at startup only") and is
// returned rather than silently downgrading the game listener to plaintext.
func initSupervisor(cfg *appConfig, l *slog.Logger) (*supervisor.Supervisor, error) {
	l.Info("build_info", "version", version, "commit", commit, "date", date)
	l.Info("supervisor_config",
		"host_id", cfg.hostID, "game_addr", cfg.gameAddr, "rpc_addr", cfg.rpcAddr,
		"max_connection", cfg.maxConnection, "fps", cfg.fps, "is_ws", cfg.isWS, "is_ssl", cfg.isSSL,
		"logic_path", cfg.logicPath, "robot_num", cfg.robotNum)

	tlsCfg, err := loadTLSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfig, err)
	}

	return supervisor.New(supervisor.Config{
		HostID:          wire.HostID(cfg.hostID),
		FPS:             cfg.fps,
		GameAddr:        cfg.gameAddr,
		GameIsWS:        cfg.isWS,
		GameWSPath:      "/ws/",
		GameTLS:         tlsCfg,
		RPCAddr:         cfg.rpcAddr,
		MaxConnection:   cfg.maxConnection,
		ConnMsgChanSize: cfg.connMsgChanSize,
		ReadDeadline:    cfg.readDeadline,
		Codec:           demo.Codec{},
		Upcalls:         scripthost.Noop{},
		Logger:          l,
	}), nil
}

// loadTLSConfig returns nil when is_ssl is false; a load failure is returned
// to the caller, which surfaces it as a fatal startup error rather than
// downgrading the game listener to plaintext on a port operators configured
// for TLS.
func loadTLSConfig(cfg *appConfig) (*tls.Config, error) {
	if !cfg.isSSL {
		return nil, nil
	}
	return service.LoadTLSConfig(cfg.certFile, cfg.keyFile)
}
