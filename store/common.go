package store

import "errors"

// ErrNotFound is returned when a row addressed by id does not exist or is not owned by the caller.
var ErrNotFound = errors.New("not found")
