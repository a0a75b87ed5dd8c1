package transform

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// ChromaRemover is a classical-vision background remover. It samples the four
// corners of the image, takes their average as the background color, and keys
// out every pixel within the configured tolerance of it. The surviving
// foreground is composited onto a transparent canvas.
type ChromaRemover struct {
	tolerance float64 // max per-channel distance, 0..1
}

// NewChromaRemover creates a ChromaRemover with the given tolerance. Values
// around 0.15 work for images shot against a uniform backdrop; zero or
// negative falls back to that default.
func NewChromaRemover(tolerance float64) *ChromaRemover {
	if tolerance <= 0 {
		tolerance = 0.15
	}

	return &ChromaRemover{tolerance: tolerance}
}

// Remove keys the sampled background color out of img.
func (r *ChromaRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	bg := cornerAverage(img)

	cutout := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.At(x, y)
			if distance(px, bg) <= r.tolerance {
				continue // leave transparent
			}
			cutout.Set(x, y, px)
		}
	}

	// Composite the cutout onto a fresh transparent canvas so the result
	// always has zero-origin bounds regardless of the source image.
	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.DrawImage(cutout, -bounds.Min.X, -bounds.Min.Y)

	return dc.Image(), nil
}

// cornerAverage samples the four corner pixels and averages them into the
// presumed background color.
func cornerAverage(img image.Image) color.NRGBA64 {
	b := img.Bounds()
	corners := []image.Point{
		{b.Min.X, b.Min.Y},
		{b.Max.X - 1, b.Min.Y},
		{b.Min.X, b.Max.Y - 1},
		{b.Max.X - 1, b.Max.Y - 1},
	}

	var sr, sg, sb uint32
	for _, p := range corners {
		r, g, bl, _ := img.At(p.X, p.Y).RGBA()
		sr += r
		sg += g
		sb += bl
	}

	n := uint32(len(corners))

	return color.NRGBA64{
		R: uint16(sr / n),
		G: uint16(sg / n),
		B: uint16(sb / n),
		A: 0xffff,
	}
}

// distance returns the maximum per-channel difference between two colors,
// normalized to 0..1.
func distance(a, b color.Color) float64 {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()

	max := chanDiff(ar, br)
	if d := chanDiff(ag, bg); d > max {
		max = d
	}
	if d := chanDiff(ab, bb); d > max {
		max = d
	}

	return float64(max) / 0xffff
}

func chanDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
