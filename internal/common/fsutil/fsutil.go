package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// ResolveUnder resolves path against base and confines the result to base.
// Relative paths are joined to base; absolute paths are accepted only when
// already inside it. Symlinks are resolved before the containment check so
// a link cannot escape the base directory.
func ResolveUnder(base, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base: %w", err)
	}
	baseReal, err := filepath.EvalSymlinks(baseAbs)
	if err != nil {
		return "", fmt.Errorf("resolve base: %w", err)
	}

	candidate := expanded
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseReal, candidate)
	}
	real, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", err
	}
	if real != baseReal && !strings.HasPrefix(real, baseReal+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes base directory", path)
	}
	return real, nil
}
