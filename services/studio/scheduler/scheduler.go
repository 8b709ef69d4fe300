// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scheduler executes a task graph over a bounded worker pool.
//
// A subtask starts only after every task it depends on has reached a
// terminal state; independent subtasks run concurrently. A failed
// dependency does not cancel its dependents: the graph encodes
// ordering, not failure propagation, so dependents still run and
// succeed or fail on their own merits.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/halcyonworks/gamestudio/services/studio/attempt"
	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
	"github.com/halcyonworks/gamestudio/services/studio/observability"
	"github.com/halcyonworks/gamestudio/services/studio/store"
)

var tracer = otel.Tracer("studio/scheduler")

// DefaultWorkers bounds concurrent task execution when no explicit
// pool size is configured.
const DefaultWorkers = 4

// Runner executes one prepared task through the retry loop.
type Runner interface {
	Run(ctx context.Context, task attempt.Task) (attempt.Result, error)
}

// Workspace prepares and releases isolated working copies. Each
// concurrent task needs its own copy; git checkout state cannot be
// shared between writers.
type Workspace interface {
	Prepare(ctx context.Context, taskID string, graph datatypes.TaskGraph) (string, error)
	Release(taskID string)
}

// Scheduler walks dependency graphs, dispatching ready subtasks to a
// worker pool.
//
// # Thread Safety
//
// Safe for concurrent use; multiple graphs may execute at once and
// share the pool.
type Scheduler struct {
	runner    Runner
	workspace Workspace
	statuses  store.StatusStore
	metrics   *observability.TaskMetrics
	logger    *slog.Logger
	sem       chan struct{}
	wg        sync.WaitGroup
}

// New creates a Scheduler with a pool of workers goroutine slots.
// metrics and logger may be nil.
func New(runner Runner, workspace Workspace, statuses store.StatusStore, metrics *observability.TaskMetrics, logger *slog.Logger, workers int) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:    runner,
		workspace: workspace,
		statuses:  statuses,
		metrics:   metrics,
		logger:    logger,
		sem:       make(chan struct{}, workers),
	}
}

// Execute dispatches every subtask of the graph and returns
// immediately.
//
// # Description
//
// Assigns each subtask a task id, records it as queued, and launches
// its node goroutine. The returned map carries ordinal to task id so
// callers can answer status queries while execution proceeds in the
// background. Graph validation is the builder's job; Execute assumes
// dependency ordinals are in range and strictly earlier.
//
// # Outputs
//
//   - map[int]string: Subtask ordinal to assigned task id.
//   - error: Non-nil only when a queued status cannot be recorded.
func (s *Scheduler) Execute(ctx context.Context, graph datatypes.TaskGraph) (map[int]string, error) {
	ids := make(map[int]string, len(graph.Subtasks))
	done := make([]chan struct{}, len(graph.Subtasks))
	now := time.Now().UTC()

	for i, sub := range graph.Subtasks {
		taskID := uuid.NewString()
		ids[i] = taskID
		done[i] = make(chan struct{})

		status := datatypes.TaskStatus{
			TaskID:          taskID,
			ProjectID:       graph.ProjectID,
			State:           datatypes.TaskStateQueued,
			Message:         "queued",
			TaskDescription: sub.Title,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.statuses.PutTask(status); err != nil {
			return nil, fmt.Errorf("queue task %d: %w", i, err)
		}
	}

	for i := range graph.Subtasks {
		if s.metrics != nil {
			s.metrics.TaskQueued()
		}
		s.wg.Add(1)
		go s.runNode(ctx, graph, graph.Subtasks[i], ids[i], done)
	}

	s.logger.Info("graph dispatched",
		"project_id", graph.ProjectID, "subtasks", len(graph.Subtasks), "branch", graph.Branch)
	return ids, nil
}

// Wait blocks until every dispatched task has finished. Used for
// drain on shutdown and in the one-shot CLI path.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// runNode is the lifecycle of one subtask: gate on dependencies, take
// a worker slot, prepare an isolated working copy, run the retry
// loop, and signal completion. Closing the done channel happens for
// every outcome so dependents are never stranded.
func (s *Scheduler) runNode(ctx context.Context, graph datatypes.TaskGraph, sub datatypes.SubtaskSpec, taskID string, done []chan struct{}) {
	defer s.wg.Done()
	defer close(done[sub.Ordinal])

	for _, dep := range sub.DependsOn {
		select {
		case <-done[dep]:
		case <-ctx.Done():
			s.failTask(taskID, "cancelled before start", ctx.Err().Error())
			return
		}
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.failTask(taskID, "cancelled before start", ctx.Err().Error())
		return
	}
	defer func() { <-s.sem }()

	if s.metrics != nil {
		s.metrics.WorkerStarted()
		defer s.metrics.WorkerDone()
	}

	ctx, span := tracer.Start(ctx, "scheduler.runNode", trace.WithAttributes(
		attribute.String("task.id", taskID),
		attribute.Int("task.ordinal", sub.Ordinal),
		attribute.String("project.id", graph.ProjectID),
	))
	defer span.End()

	start := time.Now()

	workdir, err := s.workspace.Prepare(ctx, taskID, graph)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("workspace setup failed",
			"task_id", taskID, "project_id", graph.ProjectID, "error", err.Error())
		s.failTask(taskID, "repository setup failed", err.Error())
		s.recordFinish(false, 0, start)
		return
	}
	defer s.workspace.Release(taskID)

	result, err := s.runner.Run(ctx, attempt.Task{
		TaskID:        taskID,
		ProjectID:     graph.ProjectID,
		Description:   sub.Title,
		Instructions:  sub.Instructions,
		Branch:        graph.Branch,
		Workdir:       workdir,
		RelevantFiles: sub.RelevantFiles,
	})
	if err != nil {
		// The controller already recorded the failure detail.
		span.RecordError(err)
		s.recordFinish(false, attempt.MaxAttempts, start)
		return
	}
	s.recordFinish(true, result.Attempts, start)
}

// failTask records a failure that happened before the controller took
// ownership of the task.
func (s *Scheduler) failTask(taskID, message, detail string) {
	status, err := s.statuses.GetTask(taskID)
	if err != nil {
		s.logger.Error("status read failed", "task_id", taskID, "error", err.Error())
		return
	}
	status.State = datatypes.TaskStateFailed
	status.Message = message
	status.ErrorDetail = detail
	status.UpdatedAt = time.Now().UTC()
	if err := s.statuses.PutTask(status); err != nil {
		s.logger.Error("status write failed", "task_id", taskID, "error", err.Error())
	}
}

func (s *Scheduler) recordFinish(success bool, attempts int, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordTaskFinished(success, attempts, time.Since(start).Seconds())
}
