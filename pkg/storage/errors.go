package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when a create collides with an existing record.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConditionFailed is returned when a conditional write did not apply
// because the record was not in the expected state.
var ErrConditionFailed = errors.New("conditional check failed")
