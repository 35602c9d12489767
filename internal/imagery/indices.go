package imagery

// epsilon guards the index denominators against division by zero.
const epsilon = 1e-8

// ComputeIndices derives the per-pixel vegetation index arrays from a
// normalized image. It requires at least 3 channels and reads R, G, B from
// the first three; with fewer channels it returns an empty set, which
// callers must treat as "no classification possible", not as a fault.
func ComputeIndices(img *NormalizedImage) IndexSet {
	if img.Channels < 3 {
		return IndexSet{}
	}

	n := img.PixelCount()
	ndvi := make([]float64, n)
	gndvi := make([]float64, n)
	vari := make([]float64, n)
	greenness := make([]float64, n)

	for i := 0; i < n; i++ {
		r := img.Pix[i*img.Channels]
		g := img.Pix[i*img.Channels+1]
		b := img.Pix[i*img.Channels+2]

		// RGB approximation of NDVI (no near-infrared band available).
		ndvi[i] = (g - r) / (g + r + epsilon)
		// GNDVI is intentionally identical to NDVI here; the source system
		// defines it this way and reclassifying it would change outputs.
		gndvi[i] = (g - r) / (g + r + epsilon)
		vari[i] = (g - r) / (g + r - b + epsilon)
		greenness[i] = g / (r + b + epsilon)
	}

	return IndexSet{
		IndexNDVI:      ndvi,
		IndexGNDVI:     gndvi,
		IndexVARI:      vari,
		IndexGreenness: greenness,
	}
}
