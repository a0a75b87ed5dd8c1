package consumer

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"

	"github.com/aliskhannn/background-remover/internal/config"
	"github.com/aliskhannn/background-remover/internal/model"
)

// pollWindow bounds how long a fetch waits on the paid lane before the free
// lane gets a turn. Paid work is always checked first, so a paid backlog is
// drained before any free job is picked up.
const pollWindow = 500 * time.Millisecond

// Consumer reads jobs from the two priority lanes. Each call to Fetch returns
// at most one message, so a worker never holds more than one job in flight.
// Messages are removed from the lane only by Commit, after the full pipeline
// has run; a crash before Commit causes redelivery.
type Consumer struct {
	paid *wbfkafka.Consumer
	free *wbfkafka.Consumer
}

// New creates a Consumer with one Kafka reader per lane, sharing the
// configured consumer group.
func New(cfg *config.Kafka) *Consumer {
	return &Consumer{
		paid: wbfkafka.NewConsumer(cfg.Brokers, cfg.PaidTopic, cfg.GroupID),
		free: wbfkafka.NewConsumer(cfg.Brokers, cfg.FreeTopic, cfg.GroupID),
	}
}

// Fetch blocks until a message is available on either lane or ctx is done,
// preferring the paid lane. It returns the lane the message came from so the
// caller can commit against the right reader.
func (c *Consumer) Fetch(ctx context.Context) (model.Lane, kafka.Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", kafka.Message{}, err
		}

		msg, ok, err := c.fetchLane(ctx, c.paid)
		if err != nil {
			return "", kafka.Message{}, err
		}
		if ok {
			return model.LanePaid, msg, nil
		}

		msg, ok, err = c.fetchLane(ctx, c.free)
		if err != nil {
			return "", kafka.Message{}, err
		}
		if ok {
			return model.LaneFree, msg, nil
		}
	}
}

// fetchLane polls one lane for at most pollWindow. An expired window is not
// an error, it just means the lane had nothing to offer this round.
func (c *Consumer) fetchLane(ctx context.Context, client *wbfkafka.Consumer) (kafka.Message, bool, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, pollWindow)
	defer cancel()

	msg, err := client.Fetch(fetchCtx)
	if err != nil {
		if fetchCtx.Err() != nil && ctx.Err() == nil {
			return kafka.Message{}, false, nil
		}

		return kafka.Message{}, false, err
	}

	return msg, true, nil
}

// Commit acknowledges a message on the lane it was fetched from.
func (c *Consumer) Commit(ctx context.Context, lane model.Lane, msg kafka.Message) error {
	if lane == model.LanePaid {
		return c.paid.Commit(ctx, msg)
	}

	return c.free.Commit(ctx, msg)
}

// Close closes both lane readers.
func (c *Consumer) Close() error {
	if err := c.paid.Close(); err != nil {
		return err
	}

	return c.free.Close()
}
