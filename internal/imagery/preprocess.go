package imagery

import (
	"github.com/disintegration/imaging"
)

// Preprocessor resizes raw images to the fixed analysis resolution and
// normalizes intensities to [0,1].
type Preprocessor struct {
	targetSize int
}

// NewPreprocessor creates a preprocessor with the given square target size.
func NewPreprocessor(targetSize int) *Preprocessor {
	return &Preprocessor{targetSize: targetSize}
}

// Preprocess resizes raw to the target size and scales each channel to
// [0,1]. Single-channel sources keep an explicit channel axis so downstream
// shape checks hold. Never fails for a well-formed RawImage.
func (p *Preprocessor) Preprocess(raw *RawImage) *NormalizedImage {
	// Lanczos is deterministic for a given input; interpolation choice is
	// not part of the contract.
	resized := imaging.Resize(raw.Img, p.targetSize, p.targetSize, imaging.Lanczos)

	norm := &NormalizedImage{
		Width:    p.targetSize,
		Height:   p.targetSize,
		Channels: raw.Channels,
		Pix:      make([]float64, p.targetSize*p.targetSize*raw.Channels),
	}

	// imaging.Resize always yields NRGBA; grayscale sources arrive with
	// R == G == B, so the red byte carries the single channel.
	i := 0
	for y := 0; y < p.targetSize; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < p.targetSize; x++ {
			px := row[x*4:]
			if raw.Channels == 1 {
				norm.Pix[i] = float64(px[0]) / 255.0
				i++
				continue
			}
			norm.Pix[i] = float64(px[0]) / 255.0
			norm.Pix[i+1] = float64(px[1]) / 255.0
			norm.Pix[i+2] = float64(px[2]) / 255.0
			i += 3
		}
	}

	return norm
}
