package transport

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-deforestation-monitor/internal/config"
	"go-deforestation-monitor/internal/history"
	"go-deforestation-monitor/internal/imagery"
	"go-deforestation-monitor/internal/stats"
)

func newTestHandler(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	cfg := &config.Config{
		Host:                "127.0.0.1",
		Port:                "8080",
		RequestTimeout:      10 * time.Second,
		MaxRequestBodySize:  10 * 1024 * 1024,
		OutputRoot:          filepath.Join(root, "processed"),
		UploadRoot:          filepath.Join(root, "uploads"),
		TargetSize:          32,
		ForestThreshold:     0.3,
		DeforestedThreshold: 0.1,
		BatchWorkers:        1,
		StatsFile:           filepath.Join(root, "uploads", "processing_stats.json"),
		UploadHistoryFile:   filepath.Join(root, "uploads", "upload_history.json"),
	}

	pipeline, err := imagery.NewPipeline(cfg, imagery.NewRuleClassifier(cfg.ForestThreshold, cfg.DeforestedThreshold))
	if err != nil {
		t.Fatalf("Failed to build pipeline: %v", err)
	}

	handler := NewHandler(
		pipeline,
		stats.NewAggregator(cfg.StatsFile),
		history.NewLog(cfg.UploadHistoryFile),
		nil,
		cfg,
	)
	return handler, cfg
}

func writeScene(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 50, G: 180, B: 50, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

func TestHealthCheck(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestProcessImage(t *testing.T) {
	handler, _ := newTestHandler(t)

	scenePath := filepath.Join(t.TempDir(), "scene.png")
	writeScene(t, scenePath)

	body, _ := json.Marshal(ProcessRequest{Path: scenePath})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Results *imagery.ClassificationResult `json:"results"`
		Stats   *stats.Record                 `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Results == nil {
		t.Fatal("Expected results in response")
	}
	if response.Results.ForestPercentage != 100.0 {
		t.Errorf("Expected forest_percentage 100.0, got %f", response.Results.ForestPercentage)
	}
	if response.Stats == nil || response.Stats.TotalProcessed != 1 {
		t.Errorf("Expected stats folded in, got %+v", response.Stats)
	}
}

func TestProcessImage_MissingPathField(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestProcessImage_UnreadableFile(t *testing.T) {
	handler, _ := newTestHandler(t)

	body, _ := json.Marshal(ProcessRequest{Path: "/nonexistent/scene.jpg"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
}

func TestBatchProcessEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	dir := t.TempDir()
	writeScene(t, filepath.Join(dir, "a.png"))
	writeScene(t, filepath.Join(dir, "b.png"))
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	body, _ := json.Marshal(BatchRequest{Directory: dir})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/batch-process", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Batch *imagery.BatchReport `json:"batch"`
		Stats *stats.Record        `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Batch.TotalFiles != 3 {
		t.Errorf("Expected total_files 3, got %d", response.Batch.TotalFiles)
	}
	if response.Stats == nil || response.Stats.TotalProcessed != 2 {
		t.Errorf("Expected 2 results folded into stats, got %+v", response.Stats)
	}
}

func TestUploadImage(t *testing.T) {
	handler, cfg := newTestHandler(t)

	scenePath := filepath.Join(t.TempDir(), "scene.png")
	writeScene(t, scenePath)
	data, err := os.ReadFile(scenePath)
	if err != nil {
		t.Fatalf("Failed to read scene: %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "scene.png")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-image?process=true", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if _, ok := response["results"]; !ok {
		t.Error("Expected results for process=true upload")
	}

	// Stored file lands under the upload root
	entries, err := os.ReadDir(filepath.Join(cfg.UploadRoot, "satellite_images"))
	if err != nil || len(entries) != 1 {
		t.Errorf("Expected exactly one stored upload, got %v (err %v)", entries, err)
	}
}

func TestUploadImage_UnsupportedExtension(t *testing.T) {
	handler, _ := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "notes.txt")
	fw.Write([]byte("hello"))
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestStatistics_EmptyRecord(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/statistics", nil)
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var record stats.Record
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if record.TotalProcessed != 0 {
		t.Errorf("Expected zeroed record, got total_processed %d", record.TotalProcessed)
	}
}

func TestProcessorStatus(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/processor-status", nil)
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var status imagery.ProcessorStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if status.ClassifierMode != "rule" {
		t.Errorf("Expected rule classifier, got %s", status.ClassifierMode)
	}
}

func TestAssets_UnconfiguredRemoteStore(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for unconfigured remote store, got %d", w.Code)
	}
}
