package model

import (
	"time"

	"github.com/google/uuid"
)

// Lane is a priority partition of the job queue.
type Lane string

const (
	LanePaid Lane = "paid"
	LaneFree Lane = "free"
)

// Job statuses as reported to clients. Absence of a status record means the
// job is unknown or expired.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusInvalid    = "invalid"
)

// Job represents a single background-removal request that will be sent to
// the queue. A job is immutable once enqueued; only its derived status record
// changes as the worker drives it to a terminal state.
type Job struct {
	ID         uuid.UUID `json:"id"`
	ImageURL   string    `json:"image_url,omitempty"`  // remote source, fetched by the worker if ImageData is empty
	ImageData  []byte    `json:"image_data,omitempty"` // raw bytes captured at submission
	WebhookURL string    `json:"webhook_url,omitempty"`
	Paid       bool      `json:"is_paid_user"`
	CreatedAt  time.Time `json:"created_at"`
}

// Lane returns the queue lane matching the job's priority class.
func (j Job) Lane() Lane {
	if j.Paid {
		return LanePaid
	}
	return LaneFree
}

// Result is one entry of the /get_result response. Exactly one of Status and
// Error is set; ImageURL accompanies a completed status only.
type Result struct {
	ID       string `json:"id"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// WebhookPayload is the JSON body POSTed to the job's webhook URL on a
// terminal transition.
type WebhookPayload struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	ImageURL string `json:"image_url,omitempty"`
}
