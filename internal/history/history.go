package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UploadEntry is one accepted upload in the persisted log.
type UploadEntry struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"original_filename"`
	StoredFilename   string `json:"stored_filename"`
	SizeBytes        int64  `json:"size_bytes"`
	ContentType      string `json:"content_type"`
	UploadedAt       string `json:"uploaded_at"`
}

// Log is an append-only JSON upload log. Like the statistics file it is
// rewritten whole on every append, behind a mutex and an atomic rename.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewLog creates an upload log persisting to the given file path.
func NewLog(path string) *Log {
	return &Log{
		path: path,
		now:  time.Now,
	}
}

// Append records an upload and returns the entry with its generated ID and
// timestamp filled in.
func (l *Log) Append(entry UploadEntry) (*UploadEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return nil, err
	}

	entry.ID = uuid.NewString()
	entry.UploadedAt = l.now().Format(time.RFC3339)
	entries = append(entries, entry)

	if err := l.persist(entries); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Entries returns all logged uploads, oldest first.
func (l *Log) Entries() ([]UploadEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *Log) load() ([]UploadEntry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []UploadEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read upload history: %w", err)
	}

	var entries []UploadEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse upload history: %w", err)
	}
	return entries, nil
}

func (l *Log) persist(entries []UploadEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".uploads-*.json")
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
	return os.Rename(tmp.Name(), l.path)
}
