// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
	"github.com/halcyonworks/gamestudio/services/studio/plan"
	"github.com/halcyonworks/gamestudio/services/studio/store"
)

// CreateProject handles POST /api/projects: decompose the request
// into a task graph and dispatch it. Responds 202 with the project id
// and subtask ids; execution proceeds in the background.
func CreateProject(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "handlers.CreateProject")
		defer span.End()

		var req datatypes.ProjectSubmission
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		repoURL := req.RepoURL
		if repoURL == "" {
			repoURL = deps.GitCfg.DefaultRepoURL
		}
		repoName := req.RepoName
		if repoName == "" {
			repoName = deps.GitCfg.DefaultRepoName
		}
		if repoURL == "" || repoName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "repository url and name must be provided or configured"})
			return
		}

		project := datatypes.ProjectRequest{
			ID:          uuid.NewString(),
			Name:        req.ProjectName,
			Description: req.Description,
			RepoURL:     repoURL,
			RepoName:    repoName,
			KeyFiles:    req.KeyFiles,
		}

		deps.logger().Info("project submitted", "project_id", project.ID, "name", project.Name)

		summary, err := deps.analyzeForPlanning(ctx, project.ID, repoURL, project.KeyFiles)
		if err != nil {
			deps.logger().Error("repository analysis failed", "project_id", project.ID, "error", err.Error())
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to analyze repository: " + err.Error()})
			return
		}

		graph, err := deps.Planner.Build(ctx, project, summary)
		if err != nil {
			deps.logger().Error("decomposition failed", "project_id", project.ID, "error", err.Error())
			status := http.StatusBadGateway
			if errors.Is(err, plan.ErrValidation) || errors.Is(err, plan.ErrDecomposition) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		// Execution outlives this request; the request context dies
		// with the response.
		ids, err := deps.Scheduler.Execute(context.Background(), graph)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to dispatch tasks: " + err.Error()})
			return
		}

		subtaskIDs := make([]string, len(graph.Subtasks))
		for ordinal, id := range ids {
			subtaskIDs[ordinal] = id
		}

		record := datatypes.ProjectRecord{
			Request:    project,
			SubtaskIDs: subtaskIDs,
			Branch:     graph.Branch,
			CreatedAt:  graph.CreatedAt,
		}
		if err := deps.Statuses.PutProject(record); err != nil {
			deps.logger().Error("project record write failed", "project_id", project.ID, "error", err.Error())
		}
		if deps.Metrics != nil {
			deps.Metrics.ProjectsTotal.Inc()
		}

		c.JSON(http.StatusAccepted, datatypes.ProjectSubmissionResponse{
			ProjectID:  project.ID,
			SubtaskIDs: subtaskIDs,
			Message:    "Project tasks created successfully",
		})
	}
}

// GetProject handles GET /api/projects/:projectId. Project status is
// recomputed from the live statuses of its subtasks on every call.
func GetProject(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		record, err := deps.Statuses.GetProject(projectID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
			return
		}

		c.JSON(http.StatusOK, projectStatus(deps, record))
	}
}

// ListProjects handles GET /api/projects.
func ListProjects(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := deps.Statuses.ListProjects()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
			return
		}

		out := make([]datatypes.ProjectStatus, 0, len(records))
		for _, record := range records {
			out = append(out, projectStatus(deps, record))
		}
		c.JSON(http.StatusOK, out)
	}
}

func projectStatus(deps Deps, record datatypes.ProjectRecord) datatypes.ProjectStatus {
	subtasks := make([]datatypes.TaskStatus, 0, len(record.SubtaskIDs))
	for _, id := range record.SubtaskIDs {
		status, err := deps.Statuses.GetTask(id)
		if err != nil {
			status = datatypes.TaskStatus{
				TaskID:    id,
				ProjectID: record.Request.ID,
				State:     datatypes.TaskStateQueued,
				Message:   "status unavailable",
				UpdatedAt: time.Now().UTC(),
			}
		}
		subtasks = append(subtasks, status)
	}

	return datatypes.ProjectStatus{
		ProjectID: record.Request.ID,
		Name:      record.Request.Name,
		Branch:    record.Branch,
		CreatedAt: record.CreatedAt,
		Subtasks:  subtasks,
	}
}
