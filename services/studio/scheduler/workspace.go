// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
	"github.com/halcyonworks/gamestudio/services/studio/gitops"
)

// GitWorkspace is the production Workspace: each task gets its own
// clone in the arena, checked out on the project's feature branch.
type GitWorkspace struct {
	git    *gitops.Client
	arena  *gitops.Arena
	logger *slog.Logger
}

// NewGitWorkspace wires a workspace over a git client and arena.
// logger may be nil.
func NewGitWorkspace(git *gitops.Client, arena *gitops.Arena, logger *slog.Logger) *GitWorkspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitWorkspace{git: git, arena: arena, logger: logger}
}

// Prepare clones the project repository into the task's arena slot
// and checks out the shared feature branch.
func (w *GitWorkspace) Prepare(ctx context.Context, taskID string, graph datatypes.TaskGraph) (string, error) {
	dir, err := w.arena.Workdir(taskID)
	if err != nil {
		return "", err
	}
	if err := w.git.SetupRepository(ctx, graph.RepoURL, dir); err != nil {
		return "", fmt.Errorf("setup repository: %w", err)
	}
	if err := w.git.CreateFeatureBranch(ctx, dir, graph.Branch); err != nil {
		return "", fmt.Errorf("checkout branch %s: %w", graph.Branch, err)
	}
	return dir, nil
}

// Release discards the task's working copy.
func (w *GitWorkspace) Release(taskID string) {
	if err := w.arena.Release(taskID); err != nil {
		w.logger.Warn("workspace release failed", "task_id", taskID, "error", err.Error())
	}
}

var _ Workspace = (*GitWorkspace)(nil)
