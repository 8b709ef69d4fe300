// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gitops

import (
	"fmt"
	"os"
	"path/filepath"
)

// Arena allocates isolated working directories, one per task, under a
// common root. Tasks running in parallel against the same repository
// each get their own clone so file writes never race.
type Arena struct {
	root string
}

// NewArena creates an arena rooted at root. The directory is created
// if it does not exist.
func NewArena(root string) (*Arena, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "studio-arena")
	}
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create arena root: %w", err)
	}
	return &Arena{root: root}, nil
}

// Workdir returns the working directory assigned to taskID, creating
// it if needed.
func (a *Arena) Workdir(taskID string) (string, error) {
	dir := filepath.Join(a.root, taskID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create task workdir: %w", err)
	}
	return dir, nil
}

// Release removes the working directory for taskID and everything in
// it.
func (a *Arena) Release(taskID string) error {
	return os.RemoveAll(filepath.Join(a.root, taskID))
}
