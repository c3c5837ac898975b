package models

import "errors"

var (
	// ErrNotFound marks operations against a game or round that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks requests rejected at the service boundary before
	// any store mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData means a category cannot fill a game's round count.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConflict means an optimistic-lock transaction kept colliding with
	// concurrent writers and gave up. Safe to retry.
	ErrConflict = errors.New("transaction conflict, retries exhausted")
)
