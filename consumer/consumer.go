package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"salon-manager/utils"
)

const (
	GroupID    = "salon-manager"
	retryDelay = 5 * time.Second
)

// MessageReader is the part of *kafka.Reader the consumers use.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type handleFunc func(ctx context.Context, event utils.Event) error

// run fetches messages until ctx is cancelled. The offset is committed
// only after the message was handled or found undecodable.
func run(ctx context.Context, reader MessageReader, log logrus.FieldLogger, handle handleFunc) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.WithError(err).Warn("kafka read failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		if err := process(ctx, msg, log, handle); err != nil {
			log.WithError(err).WithField("offset", msg.Offset).Error("failed to handle event")
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("failed to commit offset")
		}
	}
}

func process(ctx context.Context, msg kafka.Message, log logrus.FieldLogger, handle handleFunc) error {
	meta := utils.ExtractEventMeta(msg)
	entry := log.WithFields(logrus.Fields{"event_id": meta.EventID, "event_type": meta.EventType, "topic": msg.Topic})

	event, err := utils.DecodeEvent(msg.Value)
	if err != nil {
		entry.WithError(err).Warn("skipping undecodable event")
		return nil
	}

	ctx = utils.ExtractTraceContext(ctx, msg)
	if err := handle(ctx, event); err != nil {
		return err
	}
	entry.Debug("event processed")
	return nil
}
