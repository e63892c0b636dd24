package pocket

import "errors"

var (
	// ErrUnreachable is returned by remote stores when the call failed for
	// lack of connectivity. It is recovered by retrying on the next trigger.
	ErrUnreachable = errors.New("remote store unreachable")

	// ErrNotFound is returned when a record is absent. Deleting a record that
	// is already absent remotely counts as a success for reconciliation.
	ErrNotFound = errors.New("record not found")

	// ErrMalformedRecord is returned for a local record missing required fields.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrStorageFailure is returned when the local store cannot be used.
	ErrStorageFailure = errors.New("local storage failure")
)
