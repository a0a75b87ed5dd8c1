package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/background-remover/internal/model"
	"github.com/aliskhannn/background-remover/internal/transform"
)

// statusStore defines the status-record writes owned by the executor.
type statusStore interface {
	SetProcessing(ctx context.Context, id uuid.UUID) error
	SetCompleted(ctx context.Context, id uuid.UUID, imageURL string) error
	SetFailed(ctx context.Context, id uuid.UUID) error
	TTL() time.Duration
}

// artifactStore defines the object-storage backend for processed images.
type artifactStore interface {
	Save(ctx context.Context, jobID string, src io.Reader, size int64) (string, error)
	PresignURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// notifier defines the best-effort webhook callback.
type notifier interface {
	Notify(ctx context.Context, url string, payload model.WebhookPayload)
}

// jobQueue defines the two-lane queue the worker pool drains.
type jobQueue interface {
	Fetch(ctx context.Context) (model.Lane, kafka.Message, error)
	Commit(ctx context.Context, lane model.Lane, msg kafka.Message) error
}

// Worker executes background-removal jobs. It owns the per-job state machine:
// every job that reaches the processing state leaves the worker with a
// completed or failed status record, or is redelivered by the queue if the
// process dies first. Re-running a job converges to the same terminal status
// and overwrites the same artifact, so redelivery is safe.
type Worker struct {
	status     statusStore
	storage    artifactStore
	remover    transform.Remover
	notifier   notifier
	fetcher    *http.Client
	strategy   retry.Strategy
	count      int
	jobTimeout time.Duration
}

// New creates a Worker pool executor.
// - st: status store (processing/completed/failed writes)
// - as: artifact store for processed images
// - r: background-removal adapter
// - n: webhook notifier
// - s: retry strategy for queue commits
// - count: number of concurrent workers shared across both lanes
// - jobTimeout: per-job processing deadline, 0 disables
func New(st statusStore, as artifactStore, r transform.Remover, n notifier, s retry.Strategy, count int, jobTimeout time.Duration) *Worker {
	if count <= 0 {
		count = 1
	}

	return &Worker{
		status:     st,
		storage:    as,
		remover:    r,
		notifier:   n,
		fetcher:    &http.Client{},
		strategy:   s,
		count:      count,
		jobTimeout: jobTimeout,
	}
}

// Run starts the worker pool against the queue and blocks the pool goroutines
// until ctx is canceled. Each worker holds at most one job in flight and
// commits its message only after Handle returns nil.
func (w *Worker) Run(ctx context.Context, wg *sync.WaitGroup, queue jobQueue) {
	zlog.Logger.Info().Int("workers", w.count).Msg("starting worker pool")

	for i := 0; i < w.count; i++ {
		wg.Add(1)
		go w.consume(ctx, wg, queue)
	}
}

// consume is a single worker loop: fetch, handle, commit.
func (w *Worker) consume(ctx context.Context, wg *sync.WaitGroup, queue jobQueue) {
	defer wg.Done()

	for {
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping worker")
			return
		}

		lane, msg, err := queue.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				zlog.Logger.Info().Msg("shutdown signal received, stopping worker")
				return
			}

			zlog.Logger.Err(err).Msg("failed to fetch message")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := w.Handle(ctx, msg); err != nil {
			// Nothing terminal was written; leave the message uncommitted so
			// the lane redelivers it.
			zlog.Logger.Err(err).
				Str("lane", string(lane)).
				Msg("failed to process job, leaving for redelivery")
			continue
		}

		// Commit the message with retries.
		err = retry.Do(func() error {
			return queue.Commit(ctx, lane, msg)
		}, w.strategy)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to commit message after retries")
		}
	}
}

// Handle drives one job through the state machine. It returns a non-nil error
// only when no terminal status could be recorded and redelivery is the
// correct recovery; domain failures (bad input, transform or upload errors)
// end in a failed status write and a nil return.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	var job model.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		// A malformed message can never succeed; drop it instead of looping
		// through redelivery.
		zlog.Logger.Err(err).Str("message", string(msg.Value)).Msg("dropping malformed job message")
		return nil
	}

	if err := w.status.SetProcessing(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	imageURL, err := w.process(jobCtx, job)
	if err != nil {
		zlog.Logger.Err(err).Str("job_id", job.ID.String()).Msg("job failed")

		if serr := w.status.SetFailed(ctx, job.ID); serr != nil {
			return fmt.Errorf("mark job failed: %w", serr)
		}

		w.notifier.Notify(ctx, job.WebhookURL, model.WebhookPayload{
			ID:     job.ID.String(),
			Status: model.StatusFailed,
		})

		return nil
	}

	if err := w.status.SetCompleted(ctx, job.ID, imageURL); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	w.notifier.Notify(ctx, job.WebhookURL, model.WebhookPayload{
		ID:       job.ID.String(),
		Status:   model.StatusCompleted,
		ImageURL: imageURL,
	})

	zlog.Logger.Info().
		Str("job_id", job.ID.String()).
		Str("image_url", imageURL).
		Msg("job completed")

	return nil
}

// process runs the failable middle of the pipeline: resolve input, remove the
// background, persist the PNG and presign its retrieval URL.
func (w *Worker) process(ctx context.Context, job model.Job) (string, error) {
	data, err := w.resolveInput(ctx, job)
	if err != nil {
		return "", fmt.Errorf("resolve input: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	cutout, err := w.remover.Remove(ctx, img)
	if err != nil {
		return "", fmt.Errorf("remove background: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, cutout, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	objectName, err := w.storage.Save(ctx, job.ID.String(), buf, int64(buf.Len()))
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}

	imageURL, err := w.storage.PresignURL(ctx, objectName, w.status.TTL())
	if err != nil {
		return "", fmt.Errorf("presign artifact url: %w", err)
	}

	return imageURL, nil
}

// resolveInput returns the raw image bytes for the job, fetching the remote
// URL when no bytes were captured at submission.
func (w *Worker) resolveInput(ctx context.Context, job model.Job) ([]byte, error) {
	if len(job.ImageData) > 0 {
		return job.ImageData, nil
	}

	if job.ImageURL == "" {
		return nil, fmt.Errorf("no image data or url provided")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.ImageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := w.fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch image: unexpected status %d from %s", resp.StatusCode, job.ImageURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}

	return data, nil
}
