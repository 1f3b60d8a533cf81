package models

import "errors"

var (
	// ErrStoreUnavailable indicates the local store could not be opened or initialised.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrNotFound indicates no record with the given identifier exists in the category.
	ErrNotFound = errors.New("record not found")
	// ErrTransportFailure indicates the remote spreadsheet was unreachable or returned malformed data.
	ErrTransportFailure = errors.New("spreadsheet transport failure")

	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownForm     = errors.New("unknown form")
	ErrInvalidField    = errors.New("invalid field value")
	ErrNotIndexed      = errors.New("field is not indexed")
	ErrNotSynced       = errors.New("category is not synced")
	ErrNoData          = errors.New("no data")
)
