package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when an insert violates a uniqueness constraint,
	// notably the one-open-shift-per-driver partial index.
	ErrConflict = errors.New("conflicting entity already exists")
)
