package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

// HTTPRemover delegates background removal to an external inference service
// (an RMBG-style segmentation model behind an HTTP endpoint). The service
// receives the image as PNG bytes and replies with the cutout as PNG.
type HTTPRemover struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRemover creates an HTTPRemover for the given inference endpoint.
func NewHTTPRemover(endpoint string, timeout time.Duration) *HTTPRemover {
	return &HTTPRemover{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Remove sends the image to the inference endpoint and decodes the reply.
func (r *HTTPRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode request image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, buf)
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, body)
	}

	out, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}

	return out, nil
}
