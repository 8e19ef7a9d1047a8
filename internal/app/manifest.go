package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Manifest описывает последнюю успешную индексацию
type Manifest struct {
	Files          []FileInfo `json:"files"`
	Documents      int        `json:"documents"`
	Chunks         int        `json:"chunks"`
	EmbeddingModel string     `json:"embedding_model"`
	Backend        string     `json:"backend"`
	KnowledgeDir   string     `json:"knowledge_dir"`
	IngestedAt     time.Time  `json:"ingested_at"`
}

type FileInfo struct {
	Path         string    `json:"path"`
	Category     string    `json:"category"`
	Chunks       int       `json:"chunks"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// loadManifest читает манифест. Отсутствующий файл - (nil, nil).
func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// saveManifest пишет манифест через временный файл и rename
func saveManifest(path string, m *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
