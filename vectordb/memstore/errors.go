package memstore

import "errors"

var (
	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("memstore: store closed")

	// ErrDimensionMismatch indicates a query vector does not match stored vectors.
	ErrDimensionMismatch = errors.New("memstore: vector dimension mismatch")
)
