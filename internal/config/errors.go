package config

import "errors"

// ErrConfig wraps all load-time failures so callers can classify via
// errors.Is; config errors are fatal only at startup.
var ErrConfig = errors.New("config")
