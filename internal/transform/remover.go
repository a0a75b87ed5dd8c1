package transform

import (
	"context"
	"image"
)

// Remover strips the background from an image. Implementations are opaque to
// the job executor and swappable between an ML inference service and a
// classical color-keying pass.
type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}
