package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"salon-manager/utils"
)

const clientCacheTTL = 24 * time.Hour

// ClientConsumer keeps the client cache and the client search index in step
// with client_events.
type ClientConsumer struct {
	reader MessageReader
	cache  utils.RedisClient
	es     utils.ElasticsearchClient
	log    logrus.FieldLogger
}

// NewClientConsumer accepts a nil cache or index; that side is then skipped.
func NewClientConsumer(reader MessageReader, cache utils.RedisClient, es utils.ElasticsearchClient, log logrus.FieldLogger) *ClientConsumer {
	return &ClientConsumer{
		reader: reader,
		cache:  cache,
		es:     es,
		log:    log.WithField("consumer", utils.TopicClientEvents),
	}
}

// Run blocks until ctx is cancelled.
func (c *ClientConsumer) Run(ctx context.Context) {
	c.log.Info("starting client consumer")
	run(ctx, c.reader, c.log, c.Handle)
	c.log.Info("client consumer stopped")
}

func (c *ClientConsumer) Close() error {
	return c.reader.Close()
}

func (c *ClientConsumer) Handle(ctx context.Context, event utils.Event) error {
	switch event.Event {
	case "client_created", "client_updated":
		return c.store(ctx, event)
	case "client_deleted":
		return c.forget(ctx, event.ID)
	default:
		c.log.WithField("event", event.Event).Warn("unknown client event")
		return nil
	}
}

func (c *ClientConsumer) store(ctx context.Context, event utils.Event) error {
	if len(event.Data) == 0 {
		return fmt.Errorf("%s event for client %d has no data", event.Event, event.ID)
	}
	if c.cache != nil {
		if err := c.cache.SetToCache(ctx, cacheKey(event.ID), string(event.Data), clientCacheTTL); err != nil {
			c.log.WithError(err).WithField("client_id", event.ID).Warn("failed to cache client")
		}
	}
	if c.es != nil {
		if err := c.es.IndexDocument(ctx, utils.ClientsIndex, fmt.Sprint(event.ID), event.Data); err != nil {
			return fmt.Errorf("failed to index client %d: %w", event.ID, err)
		}
	}
	c.log.WithField("client_id", event.ID).Info("client synced")
	return nil
}

func (c *ClientConsumer) forget(ctx context.Context, id uint) error {
	if c.cache != nil {
		if err := c.cache.DeleteFromCache(ctx, cacheKey(id)); err != nil {
			c.log.WithError(err).WithField("client_id", id).Warn("failed to evict client")
		}
	}
	if c.es != nil {
		if err := c.es.DeleteDocument(ctx, utils.ClientsIndex, fmt.Sprint(id)); err != nil {
			return fmt.Errorf("failed to remove client %d from index: %w", id, err)
		}
	}
	c.log.WithField("client_id", id).Info("client removed")
	return nil
}

func cacheKey(id uint) string {
	return fmt.Sprintf("client:%d", id)
}
