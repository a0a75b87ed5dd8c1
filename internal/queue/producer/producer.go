package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/background-remover/internal/config"
	"github.com/aliskhannn/background-remover/internal/model"
)

// Producer routes jobs to the Kafka topic matching their priority lane.
type Producer struct {
	paid     *wbfkafka.Producer
	free     *wbfkafka.Producer
	strategy retry.Strategy
}

// New creates a Producer with one Kafka writer per lane.
// - cfg: Kafka configuration struct
// - s: retry strategy for sends
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		paid:     wbfkafka.NewProducer(cfg.Brokers, cfg.PaidTopic),
		free:     wbfkafka.NewProducer(cfg.Brokers, cfg.FreeTopic),
		strategy: s,
	}
}

// Enqueue serializes the Job to JSON and sends it to the lane matching the
// job's priority class. The Job ID is used as the message key for
// partitioning and ordering.
func (p *Producer) Enqueue(ctx context.Context, job model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %v", err)
	}

	key := []byte(job.ID.String())

	client := p.free
	if job.Lane() == model.LanePaid {
		client = p.paid
	}

	if err = client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send job: %v", err)
	}

	return nil
}

// Close closes both lane writers.
func (p *Producer) Close() error {
	if err := p.paid.Close(); err != nil {
		return err
	}

	return p.free.Close()
}
