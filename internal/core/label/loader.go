package label

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

// labelsFile is the on-disk shape of the user's label definitions.
type labelsFile struct {
	Labels []Label `json:"labels"`
}

// LoadFile reads label definitions from a JSON file. Validation happens in
// Registry.Load, not here, so a caller can inspect what the file contains
// even when parts of it are invalid.
func LoadFile(path string) ([]Label, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}

	var file labelsFile
	if err := sonic.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse labels file %s: %w", path, err)
	}
	return file.Labels, nil
}

// SaveFile writes label definitions back to disk. The write goes through a
// temp file and rename so a watcher never observes a half-written file.
func SaveFile(path string, labels []Label) error {
	data, err := sonic.ConfigDefault.MarshalIndent(labelsFile{Labels: labels}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode labels file: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write labels file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace labels file: %w", err)
	}
	return nil
}
