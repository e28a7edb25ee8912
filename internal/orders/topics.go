package orders

const (
	TopicOrderCreated    = "order.created"
	TopicPaymentCaptured = "order.payment.captured"
	TopicPaymentFailed   = "order.payment.failed"
	TopicOrderShipped    = "order.shipped"
)

// Partition key = order id so every event for one order stays ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
