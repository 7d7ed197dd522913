package storage

import "errors"

// Errors shared by the tick, dataset and run stores.
var (
	// ErrNotFound is returned when a dataset or run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a dataset, run or tick batch is inserted twice.
	// Imported data and finished runs are never updated in place.
	ErrDuplicateKey = errors.New("duplicate key: record already stored")

	// ErrInvalidInput is returned for a nil record or a missing dataset/run ID.
	ErrInvalidInput = errors.New("invalid input")
)
