package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadySeen   = errors.New("already seen")
	ErrChainDisabled = errors.New("chain feature disabled")
	ErrRateLimited   = errors.New("rate limited")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrLockHeld      = errors.New("lock already held")
)
