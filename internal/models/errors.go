package models

import "errors"

var (
	// ErrInvalidProjectName is returned for names outside [A-Za-z0-9_]+.
	ErrInvalidProjectName = errors.New("invalid project name")
	// ErrProjectNotFound is returned when an operation addresses a missing project.
	ErrProjectNotFound = errors.New("project not found")
	// ErrEmbeddingFailure wraps errors from the embedding capability, including wrong dimensions.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrStorageFailure wraps errors from the persistence engine and malformed stored rows.
	ErrStorageFailure = errors.New("storage failure")
	// ErrEmptyIndex is returned by nearest-neighbor queries over zero points.
	ErrEmptyIndex = errors.New("empty index")
	// ErrDimensionMismatch is returned when a vector does not have the expected length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
