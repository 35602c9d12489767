package imagery

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ModelMetadata describes the tensors of a trained deforestation model.
type ModelMetadata struct {
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

// ModelClassifier runs a trained ONNX model instead of the rule-based NDVI
// thresholds. It satisfies the same Classifier contract, so the two are
// interchangeable behind configuration.
type ModelClassifier struct {
	// The session reuses one input/output tensor pair, so concurrent
	// batch workers must serialize inference.
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     ModelMetadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewModelClassifier loads an ONNX model and its metadata file and prepares
// a reusable inference session.
func NewModelClassifier(modelPath, metadataPath string) (*ModelClassifier, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}

	var metadata ModelMetadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse model metadata: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ModelClassifier{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Classify runs inference. The model outputs two scores: the deforested and
// forested scene fractions; pixel counts are reconstructed from those.
func (m *ModelClassifier) Classify(img *NormalizedImage) (*ClassificationResult, error) {
	input, err := m.tensorInput(img)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.inputTensor.GetData(), input)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	output := m.outputTensor.GetData()
	if len(output) < 2 {
		return nil, fmt.Errorf("unexpected model output size: %d", len(output))
	}

	defFrac := clampFraction(float64(output[0]))
	forestFrac := clampFraction(float64(output[1]))
	totalPixels := img.PixelCount()

	// The dominant score stands in for confidence, kept on the same
	// [0.5, 0.95] scale as the rule-based path.
	confidence := math.Min(0.95, math.Max(0.5, math.Max(defFrac, forestFrac)))

	return &ClassificationResult{
		DeforestationPercentage: roundTo(defFrac*100, 2),
		ForestPercentage:        roundTo(forestFrac*100, 2),
		Confidence:              roundTo(confidence, 3),
		TotalPixels:             totalPixels,
		ForestPixels:            int(forestFrac * float64(totalPixels)),
		DeforestedPixels:        int(defFrac * float64(totalPixels)),
	}, nil
}

// Name implements Classifier.
func (m *ModelClassifier) Name() string {
	return "model"
}

// Close releases the ONNX session and tensors.
func (m *ModelClassifier) Close() {
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
	}
	if m.session != nil {
		m.session.Destroy()
	}
}

// tensorInput flattens the image into NCHW float32 order expected by the
// model's input tensor.
func (m *ModelClassifier) tensorInput(img *NormalizedImage) ([]float32, error) {
	if img.Channels < 3 {
		return nil, fmt.Errorf("model input requires 3 channels, got %d", img.Channels)
	}
	if len(m.metadata.InputShape) != 4 {
		return nil, fmt.Errorf("unexpected model input rank: %d", len(m.metadata.InputShape))
	}
	h := int(m.metadata.InputShape[2])
	w := int(m.metadata.InputShape[3])
	if img.Height != h || img.Width != w {
		return nil, fmt.Errorf("model expects %dx%d input, got %dx%d", w, h, img.Width, img.Height)
	}

	n := img.PixelCount()
	input := make([]float32, 3*n)
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			input[c*n+i] = float32(img.Pix[i*img.Channels+c])
		}
	}
	return input, nil
}

func clampFraction(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
