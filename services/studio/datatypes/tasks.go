// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the studio service.
//
// This file contains the task and project domain types shared by the
// planner, scheduler, attempt controller and HTTP handlers. Request and
// response types for the HTTP API live in api.go.
package datatypes

import "time"

// TaskState is the lifecycle state of one subtask execution.
//
// The state set is closed: a task is queued until its worker picks it
// up, running while the attempt loop is active, and then exactly one of
// completed or failed. The transition to running happens before any
// side-effecting work starts, so an observer never sees queued after
// work has begun.
type TaskState string

const (
	TaskStateQueued    TaskState = "queued"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// Terminal reports whether the state is an end state.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// ProjectRequest describes one project submission.
//
// Created once at submission time and immutable thereafter. Repository
// coordinates are optional; when absent the values from the environment
// are used.
type ProjectRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	RepoURL     string   `json:"repo_url,omitempty"`
	RepoName    string   `json:"repo_name,omitempty"`
	KeyFiles    []string `json:"key_files,omitempty"`
}

// SubtaskSpec is one unit of work produced by project decomposition.
//
// The ordinal index is stable and used as the dependency reference:
// DependsOn may only contain ordinals strictly smaller than Ordinal,
// which makes the dependency relation acyclic by construction. Specs
// are immutable once the graph is built.
type SubtaskSpec struct {
	// Ordinal is the zero-based index of this subtask in the graph.
	Ordinal int `json:"ordinal"`

	// Title is the short task description used for logging and commit
	// messages.
	Title string `json:"title"`

	// Instructions is the fully composed prompt for the developer
	// model: title, detailed requirements, originating project
	// requirements and relevant files, in that order.
	Instructions string `json:"instructions"`

	// DependsOn lists ordinals that must reach a terminal state before
	// this subtask starts.
	DependsOn []int `json:"depends_on"`

	// RelevantFiles limits the file context handed to the developer
	// model for this subtask.
	RelevantFiles []string `json:"relevant_files"`

	// Requirements are the originating project requirements this
	// subtask implements.
	Requirements []string `json:"requirements"`
}

// TaskGraph is the full decomposition of one project.
//
// All subtasks of one project share a single feature branch so that
// their commits converge, even though they execute independently. The
// graph is owned by the scheduler for the lifetime of one project
// execution and is not mutated after construction.
type TaskGraph struct {
	ProjectID   string        `json:"project_id"`
	ProjectName string        `json:"project_name"`
	RepoURL     string        `json:"repo_url"`
	RepoName    string        `json:"repo_name"`
	Branch      string        `json:"branch"`
	Subtasks    []SubtaskSpec `json:"subtasks"`
	CreatedAt   time.Time     `json:"created_at"`
}

// TaskStatus is the externally visible status of one subtask.
//
// Mutated only by the attempt controller (via the status store) and
// read by status queries. Readers always receive a copy, never a
// reference into the store.
type TaskStatus struct {
	TaskID          string    `json:"task_id"`
	ProjectID       string    `json:"project_id,omitempty"`
	State           TaskState `json:"status"`
	Message         string    `json:"message"`
	TaskDescription string    `json:"task_description"`
	BranchName      string    `json:"branch_name,omitempty"`
	ErrorDetail     string    `json:"error_detail,omitempty"`
	Attempts        int       `json:"attempts,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProjectRecord is the stored half of a project: the request plus the
// IDs of the subtasks scheduled for it. Live subtask states are not
// stored here; ProjectStatus is always derived at read time.
type ProjectRecord struct {
	Request    ProjectRequest `json:"request"`
	SubtaskIDs []string       `json:"subtask_ids"`
	Branch     string         `json:"branch"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ProjectStatus aggregates the live task statuses of one project.
//
// Derived on every read from the current subtask states, never stored
// independently, so it can not go stale relative to the tasks.
type ProjectStatus struct {
	ProjectID string       `json:"project_id"`
	Name      string       `json:"name"`
	Branch    string       `json:"branch"`
	CreatedAt time.Time    `json:"created_at"`
	Subtasks  []TaskStatus `json:"subtasks"`
}

// AttemptOutcome is the result of one developer/reviewer cycle.
type AttemptOutcome string

const (
	AttemptPending  AttemptOutcome = "pending"
	AttemptApproved AttemptOutcome = "approved"
	AttemptRejected AttemptOutcome = "rejected"
	AttemptExhaust  AttemptOutcome = "exhausted"
)

// AttemptRecord captures one iteration of the bounded retry loop.
//
// Records are chained: the Feedback of attempt N is fed verbatim into
// the prompt of attempt N+1. The chain is discarded once the attempt
// controller reaches a terminal outcome.
type AttemptRecord struct {
	// Number is 1-based.
	Number int `json:"number"`

	// Feedback is the reviewer feedback from the previous attempt.
	// Empty on the first attempt.
	Feedback string `json:"feedback,omitempty"`

	Outcome AttemptOutcome `json:"outcome"`
}
