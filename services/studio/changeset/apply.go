// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package changeset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Applier writes parsed file changes into a working copy.
type Applier struct {
	logger *slog.Logger
}

// NewApplier creates an Applier. If logger is nil, slog.Default() is
// used.
func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{logger: logger}
}

// Apply writes each change under root, creating parent directories as
// needed. Each write replaces the whole file.
//
// # Outputs
//
//   - []string: Relative paths of files actually written.
//   - error: ErrUnsafePath if a change names a path outside root, or
//     the first write failure. Nothing written after a failure.
func (a *Applier) Apply(root string, changes []FileChange) ([]string, error) {
	written := make([]string, 0, len(changes))
	for _, change := range changes {
		rel, err := safeRelPath(change.Path)
		if err != nil {
			return written, err
		}

		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0750); err != nil {
			return written, fmt.Errorf("create directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(full, []byte(change.Content+"\n"), 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", rel, err)
		}

		a.logger.Debug("wrote file", "path", rel, "bytes", len(change.Content))
		written = append(written, rel)
	}
	return written, nil
}

// safeRelPath cleans a block path and rejects anything that would
// resolve outside the repository root.
func safeRelPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, path)
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, path)
	}
	return clean, nil
}
