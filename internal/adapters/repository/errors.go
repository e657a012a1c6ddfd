package repository

import "errors"

// Sentinel kinds for index errors.
var (
	ErrNotFound      = errors.New("event not found")
	ErrInvalidLimit  = errors.New("invalid query limit")
	ErrInvalidRecord = errors.New("invalid event record")
)
