package service

import "errors"

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrListen    = errors.New("listen")
	ErrAccept    = errors.New("accept")
	ErrHandshake = errors.New("handshake")
	ErrDial      = errors.New("dial")
	ErrContext   = errors.New("context_cancelled")
)
