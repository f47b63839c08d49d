// Package orders owns the order lifecycle: a reservation groups soft holds
// on stock into one order, which is later settled (paid) or released
// (canceled). Every lifecycle operation is a single transaction; partial
// effects are never visible to other callers.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/romix/stock-api/internal/catalog"
	"github.com/romix/stock-api/internal/stock"
)

type Repo struct{ DB *pgxpool.Pool }

func validateItem(it ItemInput) error {
	if it.Name == "" || it.Color == "" || it.Size == "" || it.Quantity <= 0 {
		return fmt.Errorf("%q %s/%s qty=%d: %w", it.Name, it.Color, it.Size, it.Quantity, ErrInvalidItem)
	}
	return nil
}

// CreateReservation reserves stock for every item and records the order, all
// in one transaction. The first failing item aborts the whole request: no
// order row, no holds. A brand-new product resolved here starts with zero
// stock, so referencing it fails with ErrUnknownVariant until it has been
// restocked.
func (r *Repo) CreateReservation(ctx context.Context, items []ItemInput, channel, note string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items: %w", ErrInvalidItem)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderID := uuid.NewString()
	_, err = tx.Exec(ctx,
		`INSERT INTO orders(id, status, channel, note)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))`,
		orderID, StatusReserved, channel, note)
	if err != nil {
		return "", err
	}

	for _, it := range items {
		if err := validateItem(it); err != nil {
			return "", err
		}
		pid, err := catalog.ResolveOrCreateProduct(ctx, tx, it.Name, "", 0)
		if err != nil {
			return "", err
		}
		vid, err := stock.LookupVariant(ctx, tx, pid, it.Color, it.Size)
		if err != nil {
			return "", fmt.Errorf("%s %s/%s: %w", it.Name, it.Color, it.Size, err)
		}
		if err := stock.Reserve(ctx, tx, vid, it.Quantity); err != nil {
			return "", fmt.Errorf("%s %s/%s: %w", it.Name, it.Color, it.Size, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items(order_id, variant_id, qty, unit_price)
			 VALUES ($1, $2, $3, $4)`,
			orderID, vid, it.Quantity, it.UnitPrice)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return orderID, nil
}

// Confirm settles the order: every reserved unit becomes sold and stock is
// decremented. Idempotent once paid; rejected for canceled orders.
func (r *Repo) Confirm(ctx context.Context, orderID string) error {
	return r.transition(ctx, orderID, StatusPaid)
}

// Cancel releases the order's holds without touching on_hand or sold.
// Idempotent once canceled; rejected for paid orders (refunds are a
// different flow, not modeled here).
func (r *Repo) Cancel(ctx context.Context, orderID string) error {
	return r.transition(ctx, orderID, StatusCanceled)
}

func (r *Repo) transition(ctx context.Context, orderID string, target Status) error {
	if uuid.Validate(orderID) != nil {
		return ErrOrderNotFound
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the order row so two settlements of the same order serialize and
	// the second one sees the terminal state.
	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if current == target {
		// Idempotent re-request: succeed without re-applying ledger effects.
		return tx.Commit(ctx)
	}
	if !CanTransition(current, target) {
		return fmt.Errorf("%s -> %s: %w", current, target, ErrUnsupportedTransition)
	}

	items, err := r.itemsOf(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if target == StatusPaid {
			err = stock.Settle(ctx, tx, it.VariantID, it.Qty)
		} else {
			err = stock.Release(ctx, tx, it.VariantID, it.Qty)
		}
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, target)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) itemsOf(ctx context.Context, tx pgx.Tx, orderID string) ([]OrderItem, error) {
	rows, err := tx.Query(ctx,
		`SELECT variant_id, qty FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		it := OrderItem{OrderID: orderID}
		if err := rows.Scan(&it.VariantID, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetStatus reads the order's current status from the store.
func (r *Repo) GetStatus(ctx context.Context, orderID string) (Status, error) {
	if uuid.Validate(orderID) != nil {
		return "", ErrOrderNotFound
	}
	var s Status
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return s, nil
}
