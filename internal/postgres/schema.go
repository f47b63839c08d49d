package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema on boot. Every statement is idempotent, so
// restarting against an existing database is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id         bigserial PRIMARY KEY,
			name       text NOT NULL UNIQUE,
			type       text,
			base_price numeric(12,2) NOT NULL DEFAULT 0 CHECK (base_price >= 0),
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS product_variants (
			id         bigserial PRIMARY KEY,
			product_id bigint NOT NULL REFERENCES products(id),
			color      text NOT NULL,
			size       text NOT NULL,
			on_hand    integer NOT NULL DEFAULT 0 CHECK (on_hand >= 0),
			reserved   integer NOT NULL DEFAULT 0 CHECK (reserved >= 0),
			sold       integer NOT NULL DEFAULT 0 CHECK (sold >= 0),
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			UNIQUE (product_id, color, size)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id         uuid PRIMARY KEY,
			status     text NOT NULL DEFAULT 'reserved',
			channel    text,
			note       text,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id         bigserial PRIMARY KEY,
			order_id   uuid NOT NULL REFERENCES orders(id),
			variant_id bigint NOT NULL REFERENCES product_variants(id),
			qty        integer NOT NULL CHECK (qty > 0),
			unit_price numeric(12,2) NOT NULL DEFAULT 0 CHECK (unit_price >= 0)
		)`,
		`CREATE OR REPLACE VIEW v_variant_availability AS
			SELECT p.name AS product_name,
			       p.type AS product_type,
			       p.base_price,
			       v.id   AS variant_id,
			       v.color,
			       v.size,
			       v.on_hand,
			       v.reserved,
			       v.sold,
			       v.on_hand - v.reserved AS available
			FROM product_variants v
			JOIN products p ON p.id = v.product_id`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
