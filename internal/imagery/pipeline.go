package imagery

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"go-deforestation-monitor/internal/config"
	"go-deforestation-monitor/internal/logger"
)

// SupportedExtensions are the input formats accepted for single and batch
// processing. Wide-format and georeferenced formats are out of scope for
// this variant.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// Pipeline drives loading, preprocessing, index computation and
// classification for one image at a time, persisting analysis artifacts
// under the configured output root.
type Pipeline struct {
	loader       *Loader
	preprocessor *Preprocessor
	classifier   Classifier
	outputRoot   string
	targetSize   int
	batchWorkers int
}

// NewPipeline builds a pipeline from configuration and creates the output
// directory layout.
func NewPipeline(cfg *config.Config, classifier Classifier) (*Pipeline, error) {
	for _, dir := range []string{
		cfg.OutputRoot,
		filepath.Join(cfg.OutputRoot, "preprocessed"),
		filepath.Join(cfg.OutputRoot, "analysis"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	return &Pipeline{
		loader:       NewLoader(),
		preprocessor: NewPreprocessor(cfg.TargetSize),
		classifier:   classifier,
		outputRoot:   cfg.OutputRoot,
		targetSize:   cfg.TargetSize,
		batchWorkers: cfg.BatchWorkers,
	}, nil
}

// Process runs the full pipeline over a single file. Artifact writes are
// best-effort: a failed write is logged and the in-memory result is still
// returned.
func (p *Pipeline) Process(path string) (*ClassificationResult, error) {
	logger.WithField("path", path).Info("Processing image")

	raw, err := p.loader.Load(path)
	if err != nil {
		return nil, err
	}

	norm := p.preprocessor.Preprocess(raw)

	result, err := p.classifier.Classify(norm)
	if err != nil {
		return nil, err
	}

	p.saveArtifacts(path, norm, result)

	logger.WithFields(logrus.Fields{
		"path":                     path,
		"deforestation_percentage": result.DeforestationPercentage,
		"forest_percentage":        result.ForestPercentage,
		"confidence":               result.Confidence,
	}).Info("Image processed")

	return result, nil
}

// Status reports the pipeline configuration for the status endpoint.
func (p *Pipeline) Status() ProcessorStatus {
	return ProcessorStatus{
		Status:           "active",
		SupportedFormats: SupportedExtensions,
		OutputDirectory:  p.outputRoot,
		TargetSize:       p.targetSize,
		ClassifierMode:   p.classifier.Name(),
		VegetationIndices: []string{
			IndexNDVI, IndexGNDVI, IndexVARI, IndexGreenness,
		},
	}
}

// saveArtifacts writes the denormalized preprocessed image, the placeholder
// mask and the JSON results. Each write failure is logged and swallowed.
func (p *Pipeline) saveArtifacts(path string, norm *NormalizedImage, result *ClassificationResult) {
	base := filepath.Base(path)

	preprocessedPath := filepath.Join(p.outputRoot, "preprocessed", base)
	if err := imaging.Save(denormalize(norm), preprocessedPath); err != nil {
		logger.WithError(err).WithField("path", preprocessedPath).Warn("Failed to save preprocessed image")
	}

	// Full-white placeholder until a real per-pixel label map exists.
	maskPath := filepath.Join(p.outputRoot, "analysis", "mask_"+base)
	if err := imaging.Save(whiteMask(norm.Width, norm.Height), maskPath); err != nil {
		logger.WithError(err).WithField("path", maskPath).Warn("Failed to save mask")
	}

	resultsPath := filepath.Join(p.outputRoot, "analysis", "results_"+base+".json")
	data, err := json.MarshalIndent(result, "", "  ")
	if err == nil {
		err = os.WriteFile(resultsPath, data, 0o644)
	}
	if err != nil {
		logger.WithError(err).WithField("path", resultsPath).Warn("Failed to save results JSON")
	}
}

// denormalize converts a normalized image back to 8-bit for storage.
func denormalize(norm *NormalizedImage) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, norm.Width, norm.Height))
	for y := 0; y < norm.Height; y++ {
		for x := 0; x < norm.Width; x++ {
			var r, g, b uint8
			if norm.Channels >= 3 {
				r = uint8(norm.At(x, y, 0) * 255)
				g = uint8(norm.At(x, y, 1) * 255)
				b = uint8(norm.At(x, y, 2) * 255)
			} else {
				v := uint8(norm.At(x, y, 0) * 255)
				r, g, b = v, v, v
			}
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func whiteMask(width, height int) *image.NRGBA {
	mask := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	return mask
}

// IsSupportedFile reports whether the filename carries a supported image
// extension, case-insensitively.
func IsSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
