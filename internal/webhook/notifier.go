package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/background-remover/internal/model"
)

// Notifier delivers terminal-status callbacks. Delivery is best-effort and
// fired once per terminal transition: failures are logged and swallowed, and
// a job's committed status is never affected by them. Webhook receivers must
// tolerate duplicate notifications for redelivered jobs.
type Notifier struct {
	client *http.Client
}

// New creates a Notifier with the given delivery timeout.
func New(timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{client: &http.Client{Timeout: timeout}}
}

// Notify POSTs the payload as JSON to url. A nil error does not guarantee the
// receiver processed the callback, only that delivery was attempted.
func (n *Notifier) Notify(ctx context.Context, url string, payload model.WebhookPayload) {
	if url == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		zlog.Logger.Err(err).Str("job_id", payload.ID).Msg("failed to marshal webhook payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		zlog.Logger.Err(err).Str("job_id", payload.ID).Msg("failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		zlog.Logger.Err(err).Str("job_id", payload.ID).Str("url", url).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		zlog.Logger.Warn().
			Str("job_id", payload.ID).
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("webhook receiver returned non-success")
		return
	}

	zlog.Logger.Info().Str("job_id", payload.ID).Str("status", payload.Status).Msg("webhook delivered")
}
