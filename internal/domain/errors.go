package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrLockHeld      = errors.New("lock already held")
	ErrInvalidPoolID = errors.New("invalid pool id")
)
