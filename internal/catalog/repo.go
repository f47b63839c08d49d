// Package catalog resolves product and variant identity: name -> product id,
// (product, color, size) -> variant id. Resolution is create-or-update, so
// restocks and orders can reference items that were never registered
// explicitly.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/romix/stock-api/internal/stock"
)

// ErrInvalidRestock marks a restock request the caller got wrong (missing
// identity fields or a negative quantity).
var ErrInvalidRestock = errors.New("invalid restock")

type Repo struct{ DB *pgxpool.Pool }

// ResolveOrCreateProduct returns the id for name, inserting the product on
// first reference. An existing product only gets its updated_at refreshed;
// type and base_price are never overwritten. The ON CONFLICT upsert keeps
// two concurrent first references from racing.
func ResolveOrCreateProduct(ctx context.Context, tx pgx.Tx, name, ptype string, basePrice float64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO products(name, type, base_price)
		 VALUES ($1, NULLIF($2, ''), $3)
		 ON CONFLICT (name) DO UPDATE SET updated_at = now()
		 RETURNING id`,
		name, ptype, basePrice).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve product %q: %w", name, err)
	}
	return id, nil
}

// ResolveOrCreateVariant returns the id for (productID, color, size),
// creating the variant with on_hand = max(0, onHandDelta) or adding the
// delta to an existing one. Additive only: negative deltas are clamped at
// creation and stock never shrinks through this path.
func ResolveOrCreateVariant(ctx context.Context, tx pgx.Tx, productID int64, color, size string, onHandDelta int) (int64, error) {
	if onHandDelta < 0 {
		onHandDelta = 0
	}
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO product_variants(product_id, color, size, on_hand)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id, color, size)
		 DO UPDATE SET on_hand = product_variants.on_hand + EXCLUDED.on_hand, updated_at = now()
		 RETURNING id`,
		productID, color, size, onHandDelta).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve variant %s/%s: %w", color, size, err)
	}
	return id, nil
}

// Restock adds qty units of on-hand stock for (name, color, size), creating
// the product and variant on first reference. One transaction: either the
// whole upsert chain lands or none of it does.
func (r *Repo) Restock(ctx context.Context, name, color, size string, qty int, ptype string) error {
	if name == "" || color == "" || size == "" {
		return fmt.Errorf("name, color and size are required: %w", ErrInvalidRestock)
	}
	if qty < 0 {
		return fmt.Errorf("qty must be >= 0, got %d: %w", qty, ErrInvalidRestock)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pid, err := ResolveOrCreateProduct(ctx, tx, name, ptype, 0)
	if err != nil {
		return err
	}
	vid, err := ResolveOrCreateVariant(ctx, tx, pid, color, size, 0)
	if err != nil {
		return err
	}
	if err := stock.Restock(ctx, tx, vid, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// HasVariants reports whether any stock has ever been registered. Used by
// the demo seeder to avoid reseeding a live database.
func (r *Repo) HasVariants(ctx context.Context) (bool, error) {
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM product_variants`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
