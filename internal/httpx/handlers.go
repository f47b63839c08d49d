package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/romix/stock-api/internal/catalog"
	kafkax "github.com/romix/stock-api/internal/kafka"
	"github.com/romix/stock-api/internal/orders"
	"github.com/romix/stock-api/internal/redisx"
	"github.com/romix/stock-api/internal/stock"
)

type Handler struct {
	Catalog     *catalog.Repo
	Orders      *orders.Repo
	Views       *stock.Views
	OrderEvents *kafkax.Producer
	StockEvents *kafkax.Producer
	Redis       *redis.Client
	Service     string
}

func (h *Handler) Register(r *chi.Mux) {
	r.Get("/api/stock", h.getStock)
	r.Get("/api/products", h.listProducts)
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Post("/api/orders/{id}/confirm", h.confirmOrder)
	r.Post("/api/orders/{id}/cancel", h.cancelOrder)
	r.Post("/api/variants/restock", h.restock)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps core errors to status codes. The core itself has no notion
// of HTTP; everything it raises is caller-facing and recoverable.
func statusFor(err error) int {
	var insufficient *stock.InsufficientStockError
	switch {
	case errors.Is(err, orders.ErrInvalidItem), errors.Is(err, catalog.ErrInvalidRestock):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, stock.ErrUnknownVariant):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrUnsupportedTransition), errors.As(err, &insufficient):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	var insufficient *stock.InsufficientStockError
	if errors.As(err, &insufficient) {
		body["available"] = insufficient.Available
	}
	writeJSON(w, statusFor(err), body)
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	m, err := h.Views.Availability(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, err := h.Views.ListVariants(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	if rows == nil {
		rows = []stock.VariantRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type createOrderReq struct {
	Items   []orders.ItemInput `json:"items"`
	Channel string             `json:"channel"`
	Note    string             `json:"note"`
}

type createOrderResp struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := h.Orders.CreateReservation(ctx, req.Items, req.Channel, req.Note)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheStatus(ctx, orderID, orders.StatusReserved)
	h.publish(r, h.OrderEvents, orders.EventOrderReserved, orderID,
		orders.OrderReservedPayload{OrderID: orderID, Items: req.Items, Channel: req.Channel})

	writeJSON(w, http.StatusCreated, createOrderResp{OrderID: orderID, Status: orders.StatusReserved})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Cache-aside: the notifier and the write paths keep this key fresh.
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	status, err := h.Orders.GetStatus(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	b := kafkax.MustMarshal(orders.OrderStatusPayload{OrderID: orderID, Status: status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	writeJSON(w, http.StatusOK, json.RawMessage(b))
}

func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, orders.StatusPaid)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, orders.StatusCanceled)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, target orders.Status) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var err error
	eventType := orders.EventOrderPaid
	if target == orders.StatusCanceled {
		eventType = orders.EventOrderCanceled
		err = h.Orders.Cancel(ctx, orderID)
	} else {
		err = h.Orders.Confirm(ctx, orderID)
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheStatus(ctx, orderID, target)
	h.publish(r, h.OrderEvents, eventType, orderID,
		orders.OrderStatusPayload{OrderID: orderID, Status: target})

	w.WriteHeader(http.StatusNoContent)
}

type restockReq struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Qty   int    `json:"qty"`
	Type  string `json:"type"`
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	var req restockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Catalog.Restock(ctx, req.Name, req.Color, req.Size, req.Qty, req.Type); err != nil {
		writeErr(w, err)
		return
	}

	h.publish(r, h.StockEvents, orders.EventStockRestocked, "",
		orders.StockRestockedPayload{Name: req.Name, Color: req.Color, Size: req.Size, Qty: req.Qty})

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cacheStatus(ctx context.Context, orderID string, status orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	b := kafkax.MustMarshal(orders.OrderStatusPayload{OrderID: orderID, Status: status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

// publish wraps payload in a v1 envelope and enqueues it. Best-effort
// decoration after commit; the store stays the source of truth.
func (h *Handler) publish(r *http.Request, p *kafkax.Producer, eventType, correlationID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	key := orders.PartitionKey(correlationID)
	if correlationID == "" {
		key = nil
	}
	p.Publish(key, kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
