// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonworks/gamestudio/services/studio/config"
	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
	"github.com/halcyonworks/gamestudio/services/studio/store"
)

type fakeDispatcher struct {
	graphs []datatypes.TaskGraph
	ids    map[int]string
	err    error
}

func (f *fakeDispatcher) Execute(ctx context.Context, graph datatypes.TaskGraph) (map[int]string, error) {
	f.graphs = append(f.graphs, graph)
	if f.err != nil {
		return nil, f.err
	}
	if f.ids != nil {
		return f.ids, nil
	}
	ids := make(map[int]string, len(graph.Subtasks))
	for _, sub := range graph.Subtasks {
		ids[sub.Ordinal] = "task-" + graph.ProjectID
	}
	return ids, nil
}

func testDeps(sched Dispatcher) Deps {
	return Deps{
		Scheduler: sched,
		Statuses:  store.NewMemoryStore(),
		GitCfg: config.GitConfig{
			DefaultRepoURL:  "https://example.com/acme/game.git",
			DefaultRepoName: "game",
		},
	}
}

func postBody(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCreateTask_DispatchesSingleNodeGraph(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sched := &fakeDispatcher{}
	deps := testDeps(sched)

	router := gin.New()
	router.POST("/api/tasks", CreateTask(deps))

	w := postBody(t, router, "/api/tasks", datatypes.TaskSubmission{
		TaskDescription:     "Add scoring",
		DetailedDescription: "Track the score in the header.",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp datatypes.TaskSubmissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)

	require.Len(t, sched.graphs, 1)
	graph := sched.graphs[0]
	require.Len(t, graph.Subtasks, 1)
	assert.Equal(t, "Add scoring", graph.Subtasks[0].Title)
	assert.Equal(t, "Track the score in the header.", graph.Subtasks[0].Instructions)
	assert.Equal(t, "https://example.com/acme/game.git", graph.RepoURL)
	assert.Contains(t, graph.Branch, "feature/add-scoring-")
}

func TestCreateTask_FallsBackToShortDescription(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sched := &fakeDispatcher{}
	deps := testDeps(sched)

	router := gin.New()
	router.POST("/api/tasks", CreateTask(deps))

	w := postBody(t, router, "/api/tasks", datatypes.TaskSubmission{
		TaskDescription: "Fix the menu",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, sched.graphs, 1)
	assert.Equal(t, "Fix the menu", sched.graphs[0].Subtasks[0].Instructions)
}

func TestCreateTask_RejectsInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})

	router := gin.New()
	router.POST("/api/tasks", CreateTask(deps))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/tasks", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTask_RejectsMissingDescription(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})

	router := gin.New()
	router.POST("/api/tasks", CreateTask(deps))

	w := postBody(t, router, "/api/tasks", datatypes.TaskSubmission{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTask_RequiresRepoConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})
	deps.GitCfg = config.GitConfig{}

	router := gin.New()
	router.POST("/api/tasks", CreateTask(deps))

	w := postBody(t, router, "/api/tasks", datatypes.TaskSubmission{
		TaskDescription: "Fix the menu",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "repository")
}

func TestGetTask_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})

	router := gin.New()
	router.GET("/api/tasks/:taskId", GetTask(deps))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/tasks/no-such-task", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTask_ReturnsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})
	require.NoError(t, deps.Statuses.PutTask(datatypes.TaskStatus{
		TaskID:          "t1",
		State:           datatypes.TaskStateRunning,
		TaskDescription: "Add board",
		UpdatedAt:       time.Now().UTC(),
	}))

	router := gin.New()
	router.GET("/api/tasks/:taskId", GetTask(deps))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/tasks/t1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status datatypes.TaskStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, datatypes.TaskStateRunning, status.State)
	assert.Equal(t, "Add board", status.TaskDescription)
}

func TestListTasks_ReturnsAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})
	require.NoError(t, deps.Statuses.PutTask(datatypes.TaskStatus{TaskID: "t1", State: datatypes.TaskStateQueued}))
	require.NoError(t, deps.Statuses.PutTask(datatypes.TaskStatus{TaskID: "t2", State: datatypes.TaskStateCompleted}))

	router := gin.New()
	router.GET("/api/tasks", ListTasks(deps))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/tasks", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var tasks []datatypes.TaskStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 2)
}

func TestCreateProject_RejectsMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})

	router := gin.New()
	router.POST("/api/projects", CreateProject(deps))

	w := postBody(t, router, "/api/projects", datatypes.ProjectSubmission{
		ProjectName: "chess",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProject_RequiresRepoConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})
	deps.GitCfg = config.GitConfig{}

	router := gin.New()
	router.POST("/api/projects", CreateProject(deps))

	w := postBody(t, router, "/api/projects", datatypes.ProjectSubmission{
		ProjectName: "chess",
		Description: "Build a chess game",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProject_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})

	router := gin.New()
	router.GET("/api/projects/:projectId", GetProject(deps))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/projects/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProject_AggregatesLiveSubtaskStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})

	require.NoError(t, deps.Statuses.PutProject(datatypes.ProjectRecord{
		Request:    datatypes.ProjectRequest{ID: "p1", Name: "chess"},
		SubtaskIDs: []string{"t1", "t2"},
		Branch:     "feature/chess-p1",
		CreatedAt:  time.Now().UTC(),
	}))
	require.NoError(t, deps.Statuses.PutTask(datatypes.TaskStatus{
		TaskID: "t1", ProjectID: "p1", State: datatypes.TaskStateCompleted,
	}))
	// t2 has no status record yet; the handler reports it as queued.

	router := gin.New()
	router.GET("/api/projects/:projectId", GetProject(deps))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/projects/p1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status datatypes.ProjectStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "p1", status.ProjectID)
	assert.Equal(t, "feature/chess-p1", status.Branch)
	require.Len(t, status.Subtasks, 2)
	assert.Equal(t, datatypes.TaskStateCompleted, status.Subtasks[0].State)
	assert.Equal(t, datatypes.TaskStateQueued, status.Subtasks[1].State)
}

func TestListProjects_ReturnsAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(&fakeDispatcher{})
	require.NoError(t, deps.Statuses.PutProject(datatypes.ProjectRecord{
		Request: datatypes.ProjectRequest{ID: "p1", Name: "chess"},
	}))
	require.NoError(t, deps.Statuses.PutProject(datatypes.ProjectRecord{
		Request: datatypes.ProjectRequest{ID: "p2", Name: "tetris"},
	}))

	router := gin.New()
	router.GET("/api/projects", ListProjects(deps))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/projects", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var out []datatypes.ProjectStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out, 2)
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/api/health", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}
