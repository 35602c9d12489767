package imagery

import (
	"math"
	"testing"
)

func TestClassify_UniformForestScene(t *testing.T) {
	c := NewRuleClassifier(0.3, 0.1)
	img := constantNormalized(32, 32, 50.0/255.0, 180.0/255.0, 50.0/255.0)

	result, err := c.Classify(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// NDVI ~0.565 > 0.3 everywhere
	if result.ForestPercentage != 100.0 {
		t.Errorf("Expected forest_percentage 100.0, got %f", result.ForestPercentage)
	}
	if result.DeforestationPercentage != 0.0 {
		t.Errorf("Expected deforestation_percentage 0.0, got %f", result.DeforestationPercentage)
	}
	if result.TotalPixels != 32*32 {
		t.Errorf("Expected total_pixels %d, got %d", 32*32, result.TotalPixels)
	}
	// Zero dispersion clamps confidence at the upper bound
	if result.Confidence != 0.95 {
		t.Errorf("Expected confidence 0.95, got %f", result.Confidence)
	}
}

func TestClassify_UniformDeforestedScene(t *testing.T) {
	c := NewRuleClassifier(0.3, 0.1)
	img := constantNormalized(32, 32, 200.0/255.0, 60.0/255.0, 60.0/255.0)

	result, err := c.Classify(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// NDVI ~-0.538 < 0.1 everywhere
	if result.DeforestationPercentage != 100.0 {
		t.Errorf("Expected deforestation_percentage 100.0, got %f", result.DeforestationPercentage)
	}
	if result.ForestPercentage != 0.0 {
		t.Errorf("Expected forest_percentage 0.0, got %f", result.ForestPercentage)
	}
	if result.DeforestedPixels != 32*32 {
		t.Errorf("Expected all pixels deforested, got %d", result.DeforestedPixels)
	}
}

func TestClassify_MidBandBelongsToNeitherBucket(t *testing.T) {
	c := NewRuleClassifier(0.3, 0.1)
	// NDVI = (0.6-0.4)/(0.6+0.4) = 0.2, strictly between the thresholds
	img := constantNormalized(16, 16, 0.4, 0.6, 0.5)

	result, err := c.Classify(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.ForestPercentage != 0.0 {
		t.Errorf("Expected forest_percentage 0.0, got %f", result.ForestPercentage)
	}
	if result.DeforestationPercentage != 0.0 {
		t.Errorf("Expected deforestation_percentage 0.0, got %f", result.DeforestationPercentage)
	}
	// The two percentages do not sum to 100 by design
	if result.ForestPercentage+result.DeforestationPercentage == 100.0 {
		t.Error("Expected percentages not to sum to 100 for mid-band NDVI")
	}
}

func TestClassify_ConfidenceLowerClamp(t *testing.T) {
	c := NewRuleClassifier(0.3, 0.1)

	// Alternate pure-green and pure-red pixels: NDVI alternates +1/-1,
	// stddev 1, so 1 - stddev hits the lower clamp
	img := &NormalizedImage{
		Width:    16,
		Height:   16,
		Channels: 3,
		Pix:      make([]float64, 16*16*3),
	}
	for i := 0; i < 16*16; i++ {
		if i%2 == 0 {
			img.Pix[i*3+1] = 1 // green
		} else {
			img.Pix[i*3] = 1 // red
		}
	}

	result, err := c.Classify(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Confidence != 0.5 {
		t.Errorf("Expected confidence clamped to 0.5, got %f", result.Confidence)
	}
}

func TestClassify_ConfidenceAlwaysInRange(t *testing.T) {
	c := NewRuleClassifier(0.3, 0.1)

	scenes := []*NormalizedImage{
		constantNormalized(8, 8, 0.1, 0.9, 0.2),
		constantNormalized(8, 8, 0.9, 0.1, 0.5),
		constantNormalized(8, 8, 0.5, 0.5, 0.5),
	}
	for i, img := range scenes {
		result, err := c.Classify(img)
		if err != nil {
			t.Fatalf("Scene %d: unexpected error: %v", i, err)
		}
		if result.Confidence < 0.5 || result.Confidence > 0.95 {
			t.Errorf("Scene %d: confidence %f outside [0.5, 0.95]", i, result.Confidence)
		}
	}
}

func TestClassifyIndices_DegenerateEmptySet(t *testing.T) {
	c := NewRuleClassifier(0.3, 0.1)
	img := constantNormalized(8, 8, 0.5, 0.5, 0.5)

	result := c.ClassifyIndices(img, IndexSet{})

	if result.DeforestationPercentage != 0 || result.ForestPercentage != 0 {
		t.Errorf("Expected zeroed percentages, got %f / %f",
			result.DeforestationPercentage, result.ForestPercentage)
	}
	if result.Confidence != 0 {
		t.Errorf("Expected zero confidence for degenerate result, got %f", result.Confidence)
	}
	if result.TotalPixels != 0 {
		t.Errorf("Expected zero total_pixels for degenerate result, got %d", result.TotalPixels)
	}
}

func TestClassify_PercentagesRounded(t *testing.T) {
	c := NewRuleClassifier(0.3, 0.1)

	// 1 forest pixel out of 3: 33.333...% must round to 33.33
	img := &NormalizedImage{
		Width:    3,
		Height:   1,
		Channels: 3,
		Pix: []float64{
			0.1, 0.9, 0.1, // NDVI 0.8 -> forest
			0.5, 0.5, 0.5, // NDVI 0 -> deforested
			0.5, 0.5, 0.5, // NDVI 0 -> deforested
		},
	}

	result, err := c.Classify(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(result.ForestPercentage-33.33) > 1e-9 {
		t.Errorf("Expected forest_percentage 33.33, got %f", result.ForestPercentage)
	}
	if math.Abs(result.DeforestationPercentage-66.67) > 1e-9 {
		t.Errorf("Expected deforestation_percentage 66.67, got %f", result.DeforestationPercentage)
	}
}
