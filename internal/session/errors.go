package session

import "errors"

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session closed")
	// the fill layer does not exist until boundaries are loaded
	ErrNotReady = errors.New("map not ready")
	ErrNoDetail = errors.New("no detail source configured")
)
