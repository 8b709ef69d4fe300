// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the studio HTTP API.
package handlers

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/halcyonworks/gamestudio/services/studio/config"
	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
	"github.com/halcyonworks/gamestudio/services/studio/gitops"
	"github.com/halcyonworks/gamestudio/services/studio/observability"
	"github.com/halcyonworks/gamestudio/services/studio/plan"
	"github.com/halcyonworks/gamestudio/services/studio/store"
)

var tracer = otel.Tracer("studio/handlers")

// Dispatcher launches a task graph and returns ordinal to task id.
type Dispatcher interface {
	Execute(ctx context.Context, graph datatypes.TaskGraph) (map[int]string, error)
}

// Planner decomposes a project into a task graph.
type Planner interface {
	Build(ctx context.Context, project datatypes.ProjectRequest, repoSummary string) (datatypes.TaskGraph, error)
}

// Deps bundles the collaborators the handlers close over.
type Deps struct {
	Planner   Planner
	Scheduler Dispatcher
	Statuses  store.StatusStore
	Git       *gitops.Client
	Arena     *gitops.Arena
	GitCfg    config.GitConfig
	Metrics   *observability.TaskMetrics
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// analyzeForPlanning clones the repository into a short-lived arena
// slot and summarizes its key files for the planning prompt.
func (d Deps) analyzeForPlanning(ctx context.Context, projectID, repoURL string, keyFiles []string) (string, error) {
	slot := "plan-" + projectID
	dir, err := d.Arena.Workdir(slot)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := d.Arena.Release(slot); err != nil {
			d.logger().Warn("planning workspace release failed", "project_id", projectID, "error", err.Error())
		}
	}()

	if err := d.Git.SetupRepository(ctx, repoURL, dir); err != nil {
		return "", err
	}
	return plan.AnalyzeRepository(dir, keyFiles), nil
}
