package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadslot-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultQueueKey is the Redis list drained by the delivery subsystem.
const DefaultQueueKey = "notifications:outbound"

// Event is a state transition handed to the external delivery subsystem.
type Event struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher hands events to an outbound queue. Delivery is not its concern.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// RedisPublisher appends events to a Redis list and announces them on a pub/sub channel
// of the same name.
type RedisPublisher struct {
	Rdb      *redis.Client
	QueueKey string
}

func (p *RedisPublisher) key() string {
	if p.QueueKey != "" {
		return p.QueueKey
	}
	return DefaultQueueKey
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	if p.Rdb == nil {
		return errors.New("redis publisher not configured")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := p.Rdb.TxPipeline()
	pipe.RPush(ctx, p.key(), b)
	pipe.Publish(ctx, p.key(), b)
	_, err = pipe.Exec(ctx)
	return err
}

// StorePublisher keeps an audit copy of every event in notification_events.
type StorePublisher struct {
	DB *gorm.DB
}

func (p *StorePublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	return p.DB.WithContext(ctx).Create(&domain.NotificationEvent{
		Type:      e.Type,
		Payload:   datatypes.JSON(b),
		CreatedAt: e.OccurredAt,
	}).Error
}

// Fanout publishes to every publisher and returns the joined errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes e best-effort: failures are logged and swallowed, and the caller's
// cancellation does not abort the publish. Safe with a nil publisher.
func Emit(ctx context.Context, p Publisher, eventType string, payload map[string]interface{}) {
	if p == nil {
		return
	}
	e := Event{Type: eventType, Payload: payload, OccurredAt: time.Now().UTC()}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := p.Publish(pctx, e); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("notification publish failed")
	}
}
