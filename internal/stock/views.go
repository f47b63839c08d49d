package stock

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// VariantRow is one line of the flat listing, joined from the
// v_variant_availability view.
type VariantRow struct {
	ProductName string  `json:"product_name"`
	ProductType *string `json:"product_type,omitempty"`
	BasePrice   float64 `json:"base_price"`
	VariantID   int64   `json:"variant_id"`
	Color       string  `json:"color"`
	Size        string  `json:"size"`
	OnHand      int     `json:"on_hand"`
	Reserved    int     `json:"reserved"`
	Sold        int     `json:"sold"`
	Available   int     `json:"available"`
}

// AvailabilityMap is product name -> color -> size -> available quantity.
type AvailabilityMap map[string]map[string]map[string]int

// Views are read-only projections of current ledger state. They own no
// state and are recomputed from the store on every call.
type Views struct{ DB *pgxpool.Pool }

// Availability builds the nested availability map across all variants.
// Each row's figures come from a single statement, so every entry is
// internally consistent even while writers are running.
func (v *Views) Availability(ctx context.Context) (AvailabilityMap, error) {
	rows, err := v.DB.Query(ctx,
		`SELECT p.name, v.color, v.size, v.on_hand - v.reserved
		 FROM product_variants v JOIN products p ON p.id = v.product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := AvailabilityMap{}
	for rows.Next() {
		var name, color, size string
		var avail int
		if err := rows.Scan(&name, &color, &size, &avail); err != nil {
			return nil, err
		}
		byColor, ok := out[name]
		if !ok {
			byColor = map[string]map[string]int{}
			out[name] = byColor
		}
		bySize, ok := byColor[color]
		if !ok {
			bySize = map[string]int{}
			byColor[color] = bySize
		}
		if avail < 0 {
			avail = 0
		}
		bySize[size] = avail
	}
	return out, rows.Err()
}

// ListVariants returns one row per variant, ordered by product name, color,
// size.
func (v *Views) ListVariants(ctx context.Context) ([]VariantRow, error) {
	rows, err := v.DB.Query(ctx,
		`SELECT product_name, product_type, base_price, variant_id, color, size,
		        on_hand, reserved, sold, available
		 FROM v_variant_availability
		 ORDER BY product_name, color, size`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VariantRow
	for rows.Next() {
		var r VariantRow
		if err := rows.Scan(&r.ProductName, &r.ProductType, &r.BasePrice, &r.VariantID,
			&r.Color, &r.Size, &r.OnHand, &r.Reserved, &r.Sold, &r.Available); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
