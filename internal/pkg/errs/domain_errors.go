package errs

import "errors"

// Business error taxonomy shared by the usecase layers.
var (
	// Slot / hold errors
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrHoldNotFound    = errors.New("hold not found")
	ErrHoldExpired     = errors.New("hold expired")
	ErrInvalidPhase    = errors.New("invalid hold phase for operation")
	ErrInvalidSlotKey  = errors.New("invalid slot key")

	// Concurrency errors
	ErrStaleVersion = errors.New("stale version")
	// ErrConstraintViolation means the storage constraint fired even though
	// the version check and the row lock should have prevented the write.
	// It is anomalous and must be logged as critical, never retried.
	ErrConstraintViolation = errors.New("uniqueness constraint violation")

	// Booking errors
	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingClosed   = errors.New("booking is not active")

	// Assignment errors
	ErrNoWorkerAvailable = errors.New("no worker available")

	// Negotiation errors
	ErrOfferNotFound     = errors.New("offer not found")
	ErrOfferClosed       = errors.New("offer already answered or expired")
	ErrNoAlternatives    = errors.New("no alternative slots available")
	ErrInvalidOfferReply = errors.New("invalid offer reply")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
