package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderReserved  = "OrderReserved"
	EventOrderPaid      = "OrderPaid"
	EventOrderCanceled  = "OrderCanceled"
	EventStockRestocked = "StockRestocked"
)

// Envelope wraps every published event. Consumers dedup on EventID and route
// on EventType without decoding the payload.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id for lifecycle events
	Payload       json.RawMessage `json:"payload"`
}

type OrderReservedPayload struct {
	OrderID string      `json:"order_id"`
	Items   []ItemInput `json:"items"`
	Channel string      `json:"channel,omitempty"`
}

type OrderStatusPayload struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

type StockRestockedPayload struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Qty   int    `json:"qty"`
}
