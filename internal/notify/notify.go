// Package notify pushes transition notifications onto Redis lists consumed by
// the store-facing bots. Delivery is fire-and-forget: a Redis outage must
// never fail or delay an order transition.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bazara.org/internal/obs"
	"bazara.org/internal/order"
)

const (
	// QueueOrderEvents is the Redis list key for order transition jobs.
	QueueOrderEvents = "notify:order_events"
	// QueueLowStock is the Redis list key for low-stock alert jobs.
	QueueLowStock = "notify:low_stock"

	enqueueTimeout = 2 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeOrderEvent JobType = "order_event"
	JobTypeLowStock   JobType = "low_stock"
)

// Job is the generic envelope on the wire.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// LowStockPayload alerts store staff about products crossing the threshold.
type LowStockPayload struct {
	StoreID    string   `json:"store_id"`
	ProductIDs []string `json:"product_ids"`
}

// Notifier enqueues jobs via Redis.
type Notifier struct {
	client *redis.Client
}

// New creates a Redis-backed notifier.
func New(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

// OrderTransitioned enqueues one transition event plus, when stock crossed
// the threshold, a low-stock alert. Errors are logged and swallowed.
func (n *Notifier) OrderTransitioned(ctx context.Context, e order.Event) {
	ctx, cancel := context.WithTimeout(withoutCancel(ctx), enqueueTimeout)
	defer cancel()

	n.enqueue(ctx, QueueOrderEvents, JobTypeOrderEvent, e)
	if len(e.LowStock) > 0 {
		n.enqueue(ctx, QueueLowStock, JobTypeLowStock, LowStockPayload{
			StoreID:    e.StoreID,
			ProductIDs: e.LowStock,
		})
	}
}

func (n *Notifier) enqueue(ctx context.Context, key string, typ JobType, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		obs.Logger().Printf(`{"level":"error","msg":"notify marshal failed","queue":%q,"err":%q}`, key, err)
		return
	}
	job := Job{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		obs.Logger().Printf(`{"level":"error","msg":"notify marshal failed","queue":%q,"err":%q}`, key, err)
		return
	}
	if err := n.client.RPush(ctx, key, raw).Err(); err != nil {
		obs.Logger().Printf(`{"level":"error","msg":"notify enqueue failed","queue":%q,"err":%q}`, key, err)
	}
}

// withoutCancel detaches the enqueue from the request lifecycle; the event
// already committed, so an aborted request must not drop the notification.
func withoutCancel(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
