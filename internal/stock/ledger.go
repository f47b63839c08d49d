// Package stock is the per-variant ledger: on_hand, reserved and sold
// counters plus the primitives that move quantity between them.
//
// Every mutating primitive runs on the caller's transaction and takes a row
// lock on the variant first, so concurrent reservations against the same
// variant serialize and available = on_hand - reserved can never go negative.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Available clamps on_hand - reserved at zero. reserved <= on_hand is an
// invariant of the ledger, so the clamp only matters for display paths.
func Available(onHand, reserved int) int {
	if a := onHand - reserved; a > 0 {
		return a
	}
	return 0
}

// LookupVariant resolves a variant id by its unique (product, color, size)
// tuple within tx. Returns ErrUnknownVariant when absent.
func LookupVariant(ctx context.Context, tx pgx.Tx, productID int64, color, size string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM product_variants WHERE product_id=$1 AND color=$2 AND size=$3`,
		productID, color, size).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUnknownVariant
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Reserve places a soft hold of qty units on the variant. The variant row is
// locked for the rest of tx; if fewer than qty units are available the
// reservation fails with InsufficientStockError and nothing is written.
func Reserve(ctx context.Context, tx pgx.Tx, variantID int64, qty int) error {
	var onHand, reserved int
	err := tx.QueryRow(ctx,
		`SELECT on_hand, reserved FROM product_variants WHERE id=$1 FOR UPDATE`,
		variantID).Scan(&onHand, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUnknownVariant
	}
	if err != nil {
		return err
	}
	if avail := onHand - reserved; avail < qty {
		return &InsufficientStockError{VariantID: variantID, Requested: qty, Available: avail}
	}
	_, err = tx.Exec(ctx,
		`UPDATE product_variants SET reserved = reserved + $2, updated_at = now() WHERE id=$1`,
		variantID, qty)
	return err
}

// Settle converts qty previously reserved units into a sale: reserved and
// on_hand go down, sold goes up. The caller guarantees qty was reserved;
// anything else is a logic bug upstream, not a user error.
func Settle(ctx context.Context, tx pgx.Tx, variantID int64, qty int) error {
	_, err := tx.Exec(ctx,
		`UPDATE product_variants
		 SET reserved = reserved - $2, on_hand = on_hand - $2, sold = sold + $2, updated_at = now()
		 WHERE id=$1`,
		variantID, qty)
	return err
}

// Release frees qty previously reserved units without touching on_hand or
// sold. Same precondition as Settle.
func Release(ctx context.Context, tx pgx.Tx, variantID int64, qty int) error {
	_, err := tx.Exec(ctx,
		`UPDATE product_variants SET reserved = reserved - $2, updated_at = now() WHERE id=$1`,
		variantID, qty)
	return err
}

// Restock adds qty units of on-hand stock. Additive only: shrinking
// inventory happens through settlement, never here.
func Restock(ctx context.Context, tx pgx.Tx, variantID int64, qty int) error {
	if qty < 0 {
		return fmt.Errorf("restock qty must be >= 0, got %d", qty)
	}
	_, err := tx.Exec(ctx,
		`UPDATE product_variants SET on_hand = on_hand + $2, updated_at = now() WHERE id=$1`,
		variantID, qty)
	return err
}
