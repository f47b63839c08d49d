package stock

import (
	"errors"
	"fmt"
)

// ErrUnknownVariant is returned when a ledger operation targets a
// (product, color, size) combination that was never restocked.
var ErrUnknownVariant = errors.New("unknown variant")

// InsufficientStockError reports a reservation that exceeds what is
// available. Available is the figure at the time of the locked read, so
// callers can surface it to the client.
type InsufficientStockError struct {
	VariantID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}
