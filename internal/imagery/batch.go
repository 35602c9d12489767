package imagery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"go-deforestation-monitor/internal/logger"
)

// BatchProcess runs the full pipeline over every supported file in dir.
// One entry is recorded per discovered file, in discovery order; a failure
// on one file is captured in its entry and never aborts the batch.
func (p *Pipeline) BatchProcess(dir string) (*BatchReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsSupportedFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	logger.WithFields(logrus.Fields{
		"directory": dir,
		"files":     len(files),
		"workers":   p.batchWorkers,
	}).Info("Starting batch processing")

	report := &BatchReport{
		Results:    make([]BatchEntry, len(files)),
		TotalFiles: len(files),
	}

	if p.batchWorkers <= 1 {
		for i, path := range files {
			report.Results[i] = p.processEntry(path)
		}
		return report, nil
	}

	// Each job writes only its own slot, so report order stays equal to
	// discovery order regardless of scheduling.
	pool := NewWorkerPool(p.batchWorkers)
	pool.Start()
	for i, path := range files {
		i, path := i, path
		pool.Submit(func() {
			report.Results[i] = p.processEntry(path)
		})
	}
	pool.Wait()
	pool.Close()

	return report, nil
}

func (p *Pipeline) processEntry(path string) BatchEntry {
	entry := BatchEntry{File: filepath.Base(path)}

	result, err := p.Process(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("Batch entry failed")
		entry.Status = StatusError
		entry.Error = err.Error()
		return entry
	}

	entry.Status = StatusSuccess
	entry.Result = result
	return entry
}
