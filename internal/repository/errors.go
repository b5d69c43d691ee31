package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrEscrowReleased is returned when escrowed funds were already paid out or refunded.
	ErrEscrowReleased = errors.New("escrow already released")
)
