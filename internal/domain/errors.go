package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput marks malformed caller input on the inbound surface.
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	// ErrIdempotencyRequired is returned when a mutating webhook operation
	// arrives without a delivery id to dedupe on.
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency conflict")

	// ErrServiceTypeUnresolved signals a job whose intake record maps to no
	// known service type. This is a setup mistake, not a business-data gap,
	// so the validator surfaces it as an error instead of a validation result.
	ErrServiceTypeUnresolved = errors.New("service type unresolved")

	// ErrLinkNotFound is the business outcome for a feedback-link lookup
	// that has no stored record or symlink.
	ErrLinkNotFound = errors.New("feedback link not found")
	// ErrSymlinkInvalid marks a stored matter symlink that is missing its
	// target or carries an unexpected type marker.
	ErrSymlinkInvalid = errors.New("feedback link symlink invalid")
)
