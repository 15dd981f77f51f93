package storage

import "errors"

var (
	// ErrInvalidInterval rejects a polling interval <= 0.
	ErrInvalidInterval = errors.New("polling interval must be greater than 0")

	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("manager is closed")
)
