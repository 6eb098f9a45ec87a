package domain

import "errors"

// ErrNotFound is returned when a record ID cannot be found in a catalog.
var ErrNotFound = errors.New("not found")

// ErrDuplicateID is returned when adding a record whose ID is already taken.
var ErrDuplicateID = errors.New("duplicate id")

// ErrInvalid marks validation failures. Validation errors are never sent to the network.
var ErrInvalid = errors.New("invalid record")

// ErrInFlight is returned when a request is issued while the previous one is still running.
var ErrInFlight = errors.New("request already in flight")

// ErrStreamClosed is returned when operating on a log stream that has already been closed.
var ErrStreamClosed = errors.New("stream closed")
