package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-deforestation-monitor/internal/imagery"
	"go-deforestation-monitor/internal/logger"
)

// historyLimit caps the retained per-image history; oldest entries drop
// first.
const historyLimit = 100

// DeforestedCountThreshold is the deforestation percentage at and above
// which an image counts toward total_deforested_images.
const DeforestedCountThreshold = 20.0

// HistoryEntry is one processed image in the persisted history.
type HistoryEntry struct {
	Filename                string  `json:"filename"`
	DeforestationPercentage float64 `json:"deforestation_percentage"`
	Confidence              float64 `json:"confidence"`
	Timestamp               string  `json:"timestamp"`
}

// Record is the process-wide persisted statistics state.
type Record struct {
	TotalProcessed                 int            `json:"total_processed"`
	TotalDeforestedImages          int            `json:"total_deforested_images"`
	AverageDeforestationPercentage float64        `json:"average_deforestation_percentage"`
	AverageConfidence              float64        `json:"average_confidence"`
	History                        []HistoryEntry `json:"history"`
}

// Aggregator folds classification results into a single JSON-persisted
// Record. Every update is a full read-modify-write cycle; the mutex
// serializes writers and the temp-file rename keeps the file contents
// atomic, so concurrent Record calls cannot silently drop an update.
type Aggregator struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewAggregator creates an aggregator persisting to the given file path.
func NewAggregator(path string) *Aggregator {
	return &Aggregator{
		path: path,
		now:  time.Now,
	}
}

// Record folds one classification result into the persisted record and
// returns the updated state. A persistence failure is returned alongside
// the best-effort in-memory record; callers should report it but need not
// abort the classification flow that triggered it.
func (a *Aggregator) Record(filename string, result *imagery.ClassificationResult) (*Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, loadErr := a.load()
	if loadErr != nil {
		logger.WithError(loadErr).Warn("Starting from empty statistics record")
	}

	prevTotal := record.TotalProcessed
	newTotal := prevTotal + 1
	defPct := result.DeforestationPercentage
	conf := result.Confidence

	record.AverageDeforestationPercentage = roundTo(
		(record.AverageDeforestationPercentage*float64(prevTotal)+defPct)/float64(newTotal), 2)
	record.AverageConfidence = roundTo(
		(record.AverageConfidence*float64(prevTotal)+conf)/float64(newTotal), 3)
	record.TotalProcessed = newTotal

	if defPct >= DeforestedCountThreshold {
		record.TotalDeforestedImages++
	}

	record.History = append(record.History, HistoryEntry{
		Filename:                filename,
		DeforestationPercentage: defPct,
		Confidence:              conf,
		Timestamp:               a.now().Format(time.RFC3339),
	})
	if len(record.History) > historyLimit {
		record.History = record.History[len(record.History)-historyLimit:]
	}

	if err := a.persist(record); err != nil {
		return record, fmt.Errorf("failed to persist statistics: %w", err)
	}
	return record, nil
}

// Read returns the current persisted record. A missing file yields a
// zeroed record; a corrupt or unreadable file yields a zeroed record and
// the cause.
func (a *Aggregator) Read() (*Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load()
}

// load reads the record from disk. A missing file yields a zeroed record
// with no error; anything else unreadable yields a zeroed record and the
// cause.
func (a *Aggregator) load() (*Record, error) {
	empty := &Record{History: []HistoryEntry{}}

	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return empty, fmt.Errorf("failed to read statistics file: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return empty, fmt.Errorf("failed to parse statistics file: %w", err)
	}
	if record.History == nil {
		record.History = []HistoryEntry{}
	}
	return &record, nil
}

// persist writes the full record with a temp-file-then-rename so readers
// never observe a partial file.
func (a *Aggregator) persist(record *Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".stats-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), a.path)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
