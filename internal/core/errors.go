package core

import "errors"

// Error kinds shared by every domain package. Domain sentinels wrap one of
// these so handlers can map them to a status code without knowing the domain.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrInvalid     = errors.New("invalid")
	ErrPhaseClosed = errors.New("cycle phase closed")
	ErrUnavailable = errors.New("unavailable")
)
