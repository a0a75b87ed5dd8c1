package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aliskhannn/background-remover/internal/model"
)

func TestNotifyDeliversPayload(t *testing.T) {
	var got model.WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
	}))
	defer srv.Close()

	n := New(time.Second)
	n.Notify(context.Background(), srv.URL, model.WebhookPayload{
		ID:       "job-1",
		Status:   model.StatusCompleted,
		ImageURL: "https://storage.test/out.png",
	})

	if got.ID != "job-1" || got.Status != model.StatusCompleted || got.ImageURL == "" {
		t.Errorf("payload = %+v", got)
	}
}

func TestNotifySwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(time.Second)

	// None of these may panic or block: receiver error, dead host, empty url.
	n.Notify(context.Background(), srv.URL, model.WebhookPayload{ID: "job-2", Status: model.StatusFailed})
	n.Notify(context.Background(), "http://127.0.0.1:0/cb", model.WebhookPayload{ID: "job-3", Status: model.StatusFailed})
	n.Notify(context.Background(), "", model.WebhookPayload{ID: "job-4", Status: model.StatusFailed})
}
