package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity or price is unavailable.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for malformed or out-of-range input.
	ErrInvalidInput = errors.New("invalid input")
)
