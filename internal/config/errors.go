package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidConfig marks a value that loaded but fails validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks an unreadable or unparseable source.
	ErrLoadConfig = errors.New("load config failed")
)
