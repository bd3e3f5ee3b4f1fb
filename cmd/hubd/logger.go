package main

import (
	"log/slog"

	"github.com/nodefleet/hubcore/internal/logging"
)

// setupLogging builds the process-wide rolling-file Sink (spec.md §6.5) and
// the single top-level *slog.Logger every component derives its own
// ".With(...)"-scoped logger from — mirroring the original's
// build_logger("game_state.log") call at the top of every service, except
// here every subsystem shares one rolling file rather than one per
// subsystem, since supervisor.New already labels each component via With.
// The returned logger is also installed as the package-global logging.L()
// default for code that doesn't take an explicit logger.
func setupLogging(cfg *appConfig) (sink *logging.Sink, top *slog.Logger) {
	lvl := logging.ParseLevel(cfg.logLevel)
	sink = logging.NewSink(cfg.logChanSize)
	top = logging.NewSlogLogger(logging.NewFileLogger(sink, "hubd.log", lvl)).With("app", "hubd")
	logging.Set(top)
	return sink, top
}
