package table

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
)

// WriteOutput writes records as one indented JSON array. The file is
// replaced atomically so readers never observe a partial artifact.
func WriteOutput(path string, records []domain.OutputRecord) error {
	if records == nil {
		records = []domain.OutputRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}

// ReadOutput loads a previously written artifact.
func ReadOutput(path string) ([]domain.OutputRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.OutputRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse output %s: %w", path, err)
	}
	return records, nil
}
