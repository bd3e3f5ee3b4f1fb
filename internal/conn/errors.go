package conn

import "errors"

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrFraming   = errors.New("framing")
	ErrConnRead  = errors.New("conn_read")
	ErrConnWrite = errors.New("conn_write")
	ErrCodec     = errors.New("codec")
)
