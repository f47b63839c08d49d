// Package notifier keeps the redis order-status cache in step with the
// order event stream, so status reads stay fast without hitting postgres.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/romix/stock-api/internal/kafka"
	"github.com/romix/stock-api/internal/orders"
	"github.com/romix/stock-api/internal/redisx"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderEvent is the consumer handler for the order events topic.
// Events are deduped by event_id, so redeliveries are harmless.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	var status orders.Status
	switch env.EventType {
	case orders.EventOrderReserved:
		status = orders.StatusReserved
	case orders.EventOrderPaid:
		status = orders.StatusPaid
	case orders.EventOrderCanceled:
		status = orders.StatusCanceled
	default:
		return nil // not ours
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	orderID := env.CorrelationID
	if orderID == "" {
		p, err := kafkax.UnwrapPayload[orders.OrderStatusPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID = p.OrderID
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	b := kafkax.MustMarshal(orders.OrderStatusPayload{OrderID: orderID, Status: status})
	return s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
