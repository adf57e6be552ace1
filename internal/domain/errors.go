package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDecodeFailed          = errors.New("envelope decode failed")
	ErrSessionClosed         = errors.New("push session closed")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
