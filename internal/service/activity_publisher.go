package service

import (
	"context"
	"encoding/json"

	"github.com/ctkuo2438/NUboard/internal/config"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ActivityPublisher fans out committed authorization changes over Redis Pub/Sub.
type ActivityPublisher struct {
	rdb     *redis.Client
	channel string
	log     zerolog.Logger
}

// NewActivityPublisher creates a new ActivityPublisher.
func NewActivityPublisher(rdb *redis.Client, log zerolog.Logger) *ActivityPublisher {
	return &ActivityPublisher{
		rdb:     rdb,
		channel: config.CacheKey.ActivityChannel(),
		log:     log.With().Str("component", "activity_publisher").Logger(),
	}
}

// Publish sends ev to subscribers. Failures are logged only; the change has
// already committed.
func (p *ActivityPublisher) Publish(ctx context.Context, ev model.ActivityEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Encode activity event")
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("Publish activity event failed")
	}
}

// Subscribe opens a subscription to the activity channel. The caller closes it.
func (p *ActivityPublisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.rdb.Subscribe(ctx, p.channel)
}
