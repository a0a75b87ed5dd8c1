package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/background-remover/internal/model"
	"github.com/aliskhannn/background-remover/internal/status"
)

// ErrNoImageSource is returned when a submission carries neither raw image
// bytes nor a resolvable image URL.
var ErrNoImageSource = errors.New("no valid image data provided")

// ErrFetchImage is returned when the submitted image URL cannot be downloaded
// at submission time. It maps to a client error: the job is never created.
var ErrFetchImage = errors.New("failed to download image from url")

const fetchTimeout = 10 * time.Second

// producer defines the interface for enqueueing jobs onto a priority lane.
type producer interface {
	Enqueue(ctx context.Context, job model.Job) error
}

// statusReader defines the read side of the status store.
type statusReader interface {
	Get(ctx context.Context, id uuid.UUID) (status.Record, error)
}

// Service provides business logic for job submission and result lookup. It
// validates input, assigns job identifiers and routes jobs to the queue; it
// never writes status records (the executor owns those).
type Service struct {
	producer    producer
	status      statusReader
	fetcher     *http.Client
	inlineFetch bool
}

// NewService creates a new Service. With inlineFetch enabled, a submitted
// image URL is downloaded synchronously and a bad URL is rejected before any
// job is created; otherwise resolution is deferred to the worker and a bad
// URL surfaces as a failed terminal status.
func NewService(p producer, sr statusReader, inlineFetch bool) *Service {
	return &Service{
		producer:    p,
		status:      sr,
		fetcher:     &http.Client{Timeout: fetchTimeout},
		inlineFetch: inlineFetch,
	}
}

// SubmitParams carries one submission as parsed from the request form.
type SubmitParams struct {
	ImageData  []byte
	ImageURL   string
	WebhookURL string
	Paid       bool
}

// Submit validates the submission, assigns a fresh job identifier and
// enqueues the job on the lane matching its priority class. It returns the
// identifier immediately without waiting for processing.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (uuid.UUID, error) {
	data := params.ImageData

	if len(data) == 0 && params.ImageURL != "" && s.inlineFetch {
		fetched, err := s.fetchImage(ctx, params.ImageURL)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrFetchImage, err)
		}
		data = fetched
	}

	if len(data) == 0 && params.ImageURL == "" {
		return uuid.Nil, ErrNoImageSource
	}

	job := model.Job{
		ID:         uuid.New(),
		ImageURL:   params.ImageURL,
		ImageData:  data,
		WebhookURL: params.WebhookURL,
		Paid:       params.Paid,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.producer.Enqueue(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to enqueue job: %w", err)
	}

	return job.ID, nil
}

// Results resolves each identifier against the status store independently: an
// unknown or expired identifier yields an "invalid" entry, never an error for
// the whole batch. A non-nil error means the store itself is unreachable.
func (s *Service) Results(ctx context.Context, ids []string) ([]model.Result, error) {
	results := make([]model.Result, 0, len(ids))

	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			results = append(results, model.Result{ID: raw, Status: model.StatusInvalid})
			continue
		}

		rec, err := s.status.Get(ctx, id)
		if err != nil {
			if errors.Is(err, status.ErrNotFound) {
				results = append(results, model.Result{ID: raw, Status: model.StatusInvalid})
				continue
			}

			return nil, fmt.Errorf("results: failed to get status for %s: %w", raw, err)
		}

		switch rec.Status {
		case model.StatusCompleted:
			results = append(results, model.Result{ID: raw, Status: model.StatusCompleted, ImageURL: rec.ImageURL})
		case model.StatusFailed:
			results = append(results, model.Result{ID: raw, Error: "Background removal failed"})
		default:
			results = append(results, model.Result{ID: raw, Status: model.StatusProcessing})
		}
	}

	return results, nil
}

// fetchImage downloads the image with a bounded timeout.
func (s *Service) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
