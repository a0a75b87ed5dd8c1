package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/background-remover/internal/api/respond"
	"github.com/aliskhannn/background-remover/internal/model"
	jobsvc "github.com/aliskhannn/background-remover/internal/service/job"
)

// service defines the interface for job submission and result lookup.
type service interface {
	Submit(ctx context.Context, params jobsvc.SubmitParams) (uuid.UUID, error)
	Results(ctx context.Context, ids []string) ([]model.Result, error)
}

// Handler provides HTTP handlers for the job endpoints.
// It depends on a service interface to perform the business logic.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// RemoveBackground handles the HTTP request for submitting a background
// removal job. It accepts either an uploaded image file or an image URL,
// enqueues the job on the lane matching the is_paid_user flag, and responds
// with the job identifier without waiting for processing.
func (h *Handler) RemoveBackground(c *ginext.Context) {
	params := jobsvc.SubmitParams{
		ImageURL:   c.PostForm("image_url"),
		WebhookURL: c.PostForm("webhook_url"),
		Paid:       strings.EqualFold(c.PostForm("is_paid_user"), "true"),
	}

	// The image file is optional; an image_url submission has no file part.
	file, header, err := c.Request.FormFile("image")
	if err == nil {
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to read uploaded file")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read uploaded file"))
			return
		}

		zlog.Logger.Info().
			Str("filename", header.Filename).
			Int64("size", header.Size).
			Msg("image uploaded")

		params.ImageData = data
	}

	id, err := h.service.Submit(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, jobsvc.ErrNoImageSource) || errors.Is(err, jobsvc.ErrFetchImage) {
			zlog.Logger.Warn().Err(err).Msg("rejected submission")
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Err(err).Msg("failed to submit job")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to submit job"))
		return
	}

	respond.OK(c, map[string]interface{}{"id": id})
}

// GetResult resolves one or more job identifiers against the status store.
// Each identifier is resolved independently; an unknown id yields an
// "invalid" entry rather than failing the batch.
func (h *Handler) GetResult(c *ginext.Context) {
	ids := c.QueryArray("id")
	if len(ids) == 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("No IDs provided"))
		return
	}

	results, err := h.service.Results(c.Request.Context(), ids)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to get results")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get results"))
		return
	}

	respond.OK(c, results)
}
