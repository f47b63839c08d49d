package orders

const (
	TopicOrderEvents = "stock.order.events"
	TopicStockEvents = "stock.replenishment"
)

// Partition key = order_id so all lifecycle events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
