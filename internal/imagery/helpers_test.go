package imagery

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go-deforestation-monitor/internal/config"
)

// createTestImage creates a uniform test image with the given color
func createTestImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// writeTestPNG encodes a uniform image to path
func writeTestPNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, createTestImage(32, 32, c)); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

// newTestPipeline builds a pipeline with a small target size and temp output root
func newTestPipeline(t *testing.T, workers int) *Pipeline {
	t.Helper()
	cfg := &config.Config{
		OutputRoot:   filepath.Join(t.TempDir(), "processed"),
		TargetSize:   64,
		BatchWorkers: workers,
	}
	p, err := NewPipeline(cfg, NewRuleClassifier(0.3, 0.1))
	if err != nil {
		t.Fatalf("Failed to build pipeline: %v", err)
	}
	return p
}

// constantNormalized builds a NormalizedImage where every pixel has the
// given RGB values
func constantNormalized(width, height int, r, g, b float64) *NormalizedImage {
	img := &NormalizedImage{
		Width:    width,
		Height:   height,
		Channels: 3,
		Pix:      make([]float64, width*height*3),
	}
	for i := 0; i < width*height; i++ {
		img.Pix[i*3] = r
		img.Pix[i*3+1] = g
		img.Pix[i*3+2] = b
	}
	return img
}
