package orders

// ItemInput is one reservation line as submitted by the caller. The variant
// is addressed by its natural key; quantity and unit price are recorded
// as-is on the order item and never renegotiated afterwards.
type ItemInput struct {
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderItem struct {
	ID        int64
	OrderID   string
	VariantID int64
	Qty       int
	UnitPrice float64
}
