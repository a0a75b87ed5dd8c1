package job

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/aliskhannn/background-remover/internal/model"
	"github.com/aliskhannn/background-remover/internal/status"
)

type fakeProducer struct {
	mu   sync.Mutex
	jobs []model.Job
	err  error
}

func (f *fakeProducer) Enqueue(_ context.Context, job model.Job) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
	return nil
}

type fakeStatusReader struct {
	records map[uuid.UUID]status.Record
	err     error
}

func (f *fakeStatusReader) Get(_ context.Context, id uuid.UUID) (status.Record, error) {
	if f.err != nil {
		return status.Record{}, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return status.Record{}, status.ErrNotFound
	}
	return rec, nil
}

func TestSubmitRequiresImageSource(t *testing.T) {
	s := NewService(&fakeProducer{}, &fakeStatusReader{}, true)

	_, err := s.Submit(context.Background(), SubmitParams{})
	if !errors.Is(err, ErrNoImageSource) {
		t.Fatalf("err = %v, want ErrNoImageSource", err)
	}
}

func TestSubmitRoutesByPriority(t *testing.T) {
	p := &fakeProducer{}
	s := NewService(p, &fakeStatusReader{}, true)

	paidID, err := s.Submit(context.Background(), SubmitParams{ImageData: []byte("img"), Paid: true})
	if err != nil {
		t.Fatalf("Submit paid: %v", err)
	}
	freeID, err := s.Submit(context.Background(), SubmitParams{ImageData: []byte("img")})
	if err != nil {
		t.Fatalf("Submit free: %v", err)
	}

	if paidID == freeID {
		t.Error("job identifiers must be unique")
	}
	if len(p.jobs) != 2 {
		t.Fatalf("enqueued %d jobs, want 2", len(p.jobs))
	}
	if p.jobs[0].Lane() != model.LanePaid {
		t.Errorf("first job lane = %s, want paid", p.jobs[0].Lane())
	}
	if p.jobs[1].Lane() != model.LaneFree {
		t.Errorf("second job lane = %s, want free", p.jobs[1].Lane())
	}
}

func TestSubmitInlineFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	p := &fakeProducer{}
	s := NewService(p, &fakeStatusReader{}, true)

	if _, err := s.Submit(context.Background(), SubmitParams{ImageURL: srv.URL}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(p.jobs) != 1 || string(p.jobs[0].ImageData) != "image bytes" {
		t.Fatalf("fetched bytes not captured on the job: %+v", p.jobs)
	}
}

func TestSubmitInlineFetchRejectsBadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := &fakeProducer{}
	s := NewService(p, &fakeStatusReader{}, true)

	_, err := s.Submit(context.Background(), SubmitParams{ImageURL: srv.URL + "/nope"})
	if !errors.Is(err, ErrFetchImage) {
		t.Fatalf("err = %v, want ErrFetchImage", err)
	}
	if len(p.jobs) != 0 {
		t.Error("no job should be created for a rejected submission")
	}
}

func TestSubmitDeferredFetch(t *testing.T) {
	// With inline fetch disabled the URL travels unresolved on the job.
	p := &fakeProducer{}
	s := NewService(p, &fakeStatusReader{}, false)

	if _, err := s.Submit(context.Background(), SubmitParams{ImageURL: "http://images.test/cat.png"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(p.jobs) != 1 || len(p.jobs[0].ImageData) != 0 || p.jobs[0].ImageURL == "" {
		t.Fatalf("deferred submission should carry only the url: %+v", p.jobs)
	}
}

func TestSubmitEnqueueFailure(t *testing.T) {
	s := NewService(&fakeProducer{err: errors.New("broker down")}, &fakeStatusReader{}, true)

	_, err := s.Submit(context.Background(), SubmitParams{ImageData: []byte("img")})
	if err == nil {
		t.Fatal("expected error when enqueue fails")
	}
	if errors.Is(err, ErrNoImageSource) || errors.Is(err, ErrFetchImage) {
		t.Fatalf("broker failure must not map to a client error: %v", err)
	}
}

func TestResultsIndependentPerID(t *testing.T) {
	completed := uuid.New()
	failed := uuid.New()
	processing := uuid.New()
	unknown := uuid.New()

	sr := &fakeStatusReader{records: map[uuid.UUID]status.Record{
		completed:  {Status: model.StatusCompleted, ImageURL: "https://storage.test/out.png"},
		failed:     {Status: model.StatusFailed},
		processing: {Status: model.StatusProcessing},
	}}
	s := NewService(&fakeProducer{}, sr, true)

	ids := []string{completed.String(), failed.String(), processing.String(), unknown.String(), "not-a-uuid"}
	results, err := s.Results(context.Background(), ids)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("got %d results, want %d", len(results), len(ids))
	}

	if results[0].Status != model.StatusCompleted || results[0].ImageURL == "" {
		t.Errorf("completed result = %+v", results[0])
	}
	if results[1].Error != "Background removal failed" || results[1].ImageURL != "" {
		t.Errorf("failed result = %+v", results[1])
	}
	if results[2].Status != model.StatusProcessing {
		t.Errorf("processing result = %+v", results[2])
	}
	if results[3].Status != model.StatusInvalid {
		t.Errorf("unknown result = %+v", results[3])
	}
	if results[4].Status != model.StatusInvalid {
		t.Errorf("unparsable result = %+v", results[4])
	}
}

func TestResultsStoreFailure(t *testing.T) {
	sr := &fakeStatusReader{err: errors.New("redis down")}
	s := NewService(&fakeProducer{}, sr, true)

	if _, err := s.Results(context.Background(), []string{uuid.NewString()}); err == nil {
		t.Fatal("expected error when the status store is unreachable")
	}
}
