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

// CreateTask handles POST /api/tasks: one ad-hoc task with no
// decomposition, dispatched as a single-node graph.
func CreateTask(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "handlers.CreateTask")
		defer span.End()

		var req datatypes.TaskSubmission
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

		instructions := req.DetailedDescription
		if instructions == "" {
			instructions = req.TaskDescription
		}

		id := uuid.NewString()
		graph := datatypes.TaskGraph{
			ProjectID:   id,
			ProjectName: req.TaskDescription,
			RepoURL:     repoURL,
			RepoName:    repoName,
			Branch:      plan.BranchName(req.TaskDescription, id),
			Subtasks: []datatypes.SubtaskSpec{{
				Ordinal:      0,
				Title:        req.TaskDescription,
				Instructions: instructions,
				DependsOn:    []int{},
			}},
			CreatedAt: time.Now().UTC(),
		}

		ids, err := deps.Scheduler.Execute(context.Background(), graph)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to dispatch task: " + err.Error()})
			return
		}

		deps.logger().Info("task submitted", "task_id", ids[0], "description", req.TaskDescription)
		c.JSON(http.StatusAccepted, datatypes.TaskSubmissionResponse{
			TaskID:  ids[0],
			Message: "Task created successfully",
		})
	}
}

// GetTask handles GET /api/tasks/:taskId.
func GetTask(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("taskId")

		status, err := deps.Statuses.GetTask(taskID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// ListTasks handles GET /api/tasks.
func ListTasks(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := deps.Statuses.ListTasks()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
			return
		}
		c.JSON(http.StatusOK, tasks)
	}
}
