package backend

import "errors"

// Error definitions for the backend package.
var (
	ErrBinaryNotFound = errors.New("binary not found")
	ErrTimeout        = errors.New("command timed out")
)
