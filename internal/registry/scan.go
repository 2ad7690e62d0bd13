package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MythologIQ/Hearthlink-CORE/internal/common/fsutil"
)

// DiscoveredModel is a weights file found on disk, before any load.
type DiscoveredModel struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// ScanDir lists model files directly under dir, in name order. Entries
// are ready to be handed to Load. Matching is by extension,
// case-insensitive.
func ScanDir(dir string) ([]DiscoveredModel, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []DiscoveredModel
	for _, e := range entries {
		if e.IsDir() || !isModelFile(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		models = append(models, DiscoveredModel{
			Name:      modelName(e.Name()),
			Path:      filepath.Join(abs, e.Name()),
			SizeBytes: fi.Size(),
		})
	}
	return models, nil
}

func isModelFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gguf", ".bin":
		return true
	}
	return false
}

// modelName is the file stem: base name without the extension.
func modelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
