package main

import "errors"

// errConfig wraps startup configuration failures; config errors are fatal
// only at startup, per spec.md §7.
var errConfig = errors.New("config")
