package service

import "errors"

var (
	// ErrNotStarted is returned by change hooks before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidPostID is returned for ids below one.
	ErrInvalidPostID = errors.New("invalid post id")
)
