package imagery

import "image"

// Vegetation index names. NDVI and GNDVI are computed with the same
// formula; the duplication is inherited from the source system on purpose.
const (
	IndexNDVI      = "NDVI"
	IndexGNDVI     = "GNDVI"
	IndexVARI      = "VARI"
	IndexGreenness = "Greenness"
)

// RawImage is a decoded image in canonical RGB channel order. It is
// ephemeral: the call that loaded it owns it for the duration of one
// pipeline run.
type RawImage struct {
	Img      image.Image
	Width    int
	Height   int
	Channels int
}

// NormalizedImage holds float64 intensities in [0,1] at the fixed analysis
// resolution, interleaved row-major with Channels values per pixel.
type NormalizedImage struct {
	Width    int
	Height   int
	Channels int
	Pix      []float64
}

// At returns the value of channel c at (x, y).
func (n *NormalizedImage) At(x, y, c int) float64 {
	return n.Pix[(y*n.Width+x)*n.Channels+c]
}

// PixelCount returns the spatial area of the image.
func (n *NormalizedImage) PixelCount() int {
	return n.Width * n.Height
}

// IndexSet maps a vegetation index name to a per-pixel array of length
// Width*Height matching the NormalizedImage it was derived from. An empty
// set means fewer than 3 channels were available, not a fault.
type IndexSet map[string][]float64

// ClassificationResult is the scalar outcome of classifying one image.
// forest_percentage and deforestation_percentage need not sum to 100:
// pixels between the two NDVI thresholds belong to neither bucket.
type ClassificationResult struct {
	DeforestationPercentage float64 `json:"deforestation_percentage"`
	ForestPercentage        float64 `json:"forest_percentage"`
	Confidence              float64 `json:"confidence"`
	TotalPixels             int     `json:"total_pixels"`
	ForestPixels            int     `json:"forest_pixels"`
	DeforestedPixels        int     `json:"deforested_pixels"`
}

// BatchEntry records the outcome for one file of a batch run.
type BatchEntry struct {
	File   string                `json:"file"`
	Result *ClassificationResult `json:"result"`
	Status string                `json:"status"`
	Error  string                `json:"error,omitempty"`
}

// BatchReport aggregates a directory run: one entry per discovered
// supported file, in discovery order.
type BatchReport struct {
	Results    []BatchEntry `json:"results"`
	TotalFiles int          `json:"total_files"`
}

// Batch entry statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ProcessorStatus describes the configured pipeline for the status endpoint.
type ProcessorStatus struct {
	Status            string   `json:"status"`
	SupportedFormats  []string `json:"supported_formats"`
	OutputDirectory   string   `json:"output_directory"`
	TargetSize        int      `json:"target_size"`
	ClassifierMode    string   `json:"classifier_mode"`
	VegetationIndices []string `json:"vegetation_indices_available"`
}
