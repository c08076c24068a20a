package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnauthorized       = errors.New("backend rejected credentials")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNotFound           = errors.New("resource not found")
)
