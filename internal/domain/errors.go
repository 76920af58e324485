package domain

import "errors"

var (
	// ErrNotFound reports that an object does not exist (or no longer exists).
	ErrNotFound = errors.New("object not found")

	// ErrTransient marks store failures worth retrying: network errors,
	// throttling and server-side 5xx responses.
	ErrTransient = errors.New("transient store error")

	// ErrEmptyData reports a file with no header or no data rows.
	ErrEmptyData = errors.New("empty data")

	// ErrMalformed reports a file that cannot be decoded against the
	// station-year schema.
	ErrMalformed = errors.New("malformed station-year file")

	// ErrConfig reports an unusable store location or client setup. It is
	// fatal and raised before any file is processed.
	ErrConfig = errors.New("configuration error")
)
