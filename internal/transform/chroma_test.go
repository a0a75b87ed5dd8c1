package transform

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

// testImage draws a red square centered on a white backdrop.
func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	for y := h / 4; y < 3*h/4; y++ {
		for x := w / 4; x < 3*w/4; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	return img
}

func TestChromaRemoverKeysOutBackground(t *testing.T) {
	r := NewChromaRemover(0.15)

	out, err := r.Remove(context.Background(), testImage(100, 100))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if got := out.Bounds(); got.Dx() != 100 || got.Dy() != 100 {
		t.Fatalf("unexpected bounds %v", got)
	}

	_, _, _, corner := out.At(0, 0).RGBA()
	if corner != 0 {
		t.Errorf("corner pixel should be transparent, alpha = %d", corner)
	}

	cr, _, _, ca := out.At(50, 50).RGBA()
	if ca == 0 {
		t.Error("center pixel should be opaque")
	}
	if cr == 0 {
		t.Error("center pixel lost its color")
	}
}

func TestChromaRemoverOutputEncodesAsPNG(t *testing.T) {
	r := NewChromaRemover(0)

	out, err := r.Remove(context.Background(), testImage(64, 48))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, out, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
		t.Errorf("round trip changed dimensions: %v", decoded.Bounds())
	}
}

func TestChromaRemoverEmptyImage(t *testing.T) {
	r := NewChromaRemover(0)

	if _, err := r.Remove(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestChromaRemoverCanceledContext(t *testing.T) {
	r := NewChromaRemover(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Remove(ctx, testImage(10, 10)); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
