package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aliskhannn/background-remover/internal/model"
)

// ErrNotFound is returned when no status record exists for a job, either
// because the job was never claimed by a worker or because the record's TTL
// has elapsed.
var ErrNotFound = errors.New("status not found")

// Record is the lifecycle state of a job as seen by pollers.
type Record struct {
	Status   string
	ImageURL string
}

// Store keeps per-job status records in Redis under `<id>_status` and
// `<id>_url` keys. Every write carries the configured TTL, after which the
// job reverts to unknown. Only the job executor writes to the store; the
// result API reads.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Store backed by the given Redis instance.
func New(addr, password string, db int, ttl time.Duration) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client, ttl: ttl}
}

// TTL reports the lifetime applied to status records.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// SetProcessing marks the job as claimed by a worker.
func (s *Store) SetProcessing(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Set(ctx, statusKey(id), model.StatusProcessing, s.ttl).Err(); err != nil {
		return fmt.Errorf("set processing status: %w", err)
	}

	return nil
}

// SetCompleted marks the job as completed and records the retrieval URL of
// the processed image. A redelivered job overwrites its own previous record,
// so the write is idempotent per job.
func (s *Store) SetCompleted(ctx context.Context, id uuid.UUID, imageURL string) error {
	if err := s.client.Set(ctx, urlKey(id), imageURL, s.ttl).Err(); err != nil {
		return fmt.Errorf("set result url: %w", err)
	}

	if err := s.client.Set(ctx, statusKey(id), model.StatusCompleted, s.ttl).Err(); err != nil {
		return fmt.Errorf("set completed status: %w", err)
	}

	return nil
}

// SetFailed marks the job as terminally failed.
func (s *Store) SetFailed(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Set(ctx, statusKey(id), model.StatusFailed, s.ttl).Err(); err != nil {
		return fmt.Errorf("set failed status: %w", err)
	}

	return nil
}

// Get looks up the status record for a job. It returns ErrNotFound when the
// record is absent or expired.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	st, err := s.client.Get(ctx, statusKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}

		return Record{}, fmt.Errorf("get status: %w", err)
	}

	rec := Record{Status: st}

	if st == model.StatusCompleted {
		url, err := s.client.Get(ctx, urlKey(id)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return Record{}, fmt.Errorf("get result url: %w", err)
		}
		rec.ImageURL = url
	}

	return rec, nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func statusKey(id uuid.UUID) string {
	return id.String() + "_status"
}

func urlKey(id uuid.UUID) string {
	return id.String() + "_url"
}
