package service

import "errors"

// Sentinel kinds returned by the Service.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrBackpressure  = errors.New("update queue is full")
	ErrInvalidWeight = errors.New("invalid overall weight")
)
