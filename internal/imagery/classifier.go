package imagery

import "math"

// Classifier reduces a normalized image to a ClassificationResult. The
// rule-based NDVI thresholding below is the default; a model-backed variant
// can be substituted via configuration without touching callers.
type Classifier interface {
	Classify(img *NormalizedImage) (*ClassificationResult, error)
	Name() string
}

// RuleClassifier applies fixed NDVI thresholds to derive forest and
// deforested pixel fractions.
type RuleClassifier struct {
	ForestThreshold     float64
	DeforestedThreshold float64
}

// NewRuleClassifier creates a threshold classifier. The thresholds would
// need calibration against real survey data; these defaults match the
// source system.
func NewRuleClassifier(forestThreshold, deforestedThreshold float64) *RuleClassifier {
	return &RuleClassifier{
		ForestThreshold:     forestThreshold,
		DeforestedThreshold: deforestedThreshold,
	}
}

// Classify implements Classifier by computing the vegetation indices and
// thresholding NDVI.
func (c *RuleClassifier) Classify(img *NormalizedImage) (*ClassificationResult, error) {
	return c.ClassifyIndices(img, ComputeIndices(img)), nil
}

// Name implements Classifier.
func (c *RuleClassifier) Name() string {
	return "rule"
}

// ClassifyIndices thresholds a precomputed index set. When no NDVI array is
// available it returns the degenerate zero result rather than failing.
func (c *RuleClassifier) ClassifyIndices(img *NormalizedImage, indices IndexSet) *ClassificationResult {
	ndvi, ok := indices[IndexNDVI]
	if !ok {
		return &ClassificationResult{}
	}

	totalPixels := len(ndvi)
	forestPixels := 0
	deforestedPixels := 0
	for _, v := range ndvi {
		if v > c.ForestThreshold {
			forestPixels++
		}
		if v < c.DeforestedThreshold {
			deforestedPixels++
		}
	}

	// Scene uniformity as a confidence proxy, clamped to [0.5, 0.95].
	// Not a calibrated probability.
	confidence := math.Min(0.95, math.Max(0.5, 1-stddev(ndvi)))

	return &ClassificationResult{
		DeforestationPercentage: roundTo(float64(deforestedPixels)/float64(totalPixels)*100, 2),
		ForestPercentage:        roundTo(float64(forestPixels)/float64(totalPixels)*100, 2),
		Confidence:              roundTo(confidence, 3),
		TotalPixels:             totalPixels,
		ForestPixels:            forestPixels,
		DeforestedPixels:        deforestedPixels,
	}
}

func stddev(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff / n)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
