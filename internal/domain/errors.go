package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrPairNotTracked = errors.New("pair not tracked")
	ErrBadPayload     = errors.New("malformed payload")
	ErrWSDisconnect   = errors.New("websocket disconnected")
)
