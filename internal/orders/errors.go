package orders

import "errors"

var (
	// ErrInvalidItem marks a malformed reservation line (missing identity
	// fields or non-positive quantity).
	ErrInvalidItem = errors.New("invalid order item")

	// ErrOrderNotFound is returned for lifecycle calls against an unknown
	// order id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrUnsupportedTransition is returned for lifecycle moves out of a
	// terminal state (e.g. canceling a paid order).
	ErrUnsupportedTransition = errors.New("unsupported status transition")
)
