package redisx

import "time"

const (
	// Session token -> JSON {user_id, role}: session:{token}
	KeySession = "session:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cache order payment state for quick status reads: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"
)

var (
	TTLSession     = 7 * 24 * time.Hour
	TTLDedup       = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
)
