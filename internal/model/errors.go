package model

import "errors"

// ErrRunNotFound is returned when a run id is absent from both the fast and
// the durable store.
var ErrRunNotFound = errors.New("run not found")
