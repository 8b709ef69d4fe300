// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store provides status registries for tasks and projects.
//
// # Description
//
// The scheduler and attempt controller write task statuses here; HTTP
// status queries read them. The interface is deliberately narrow
// (put/get/list) so the backing storage can be swapped without touching
// scheduler logic. Two implementations ship: an in-memory store for
// single-process deployments and tests, and a BadgerDB store that
// survives restarts.
//
// # Thread Safety
//
// All implementations are safe for concurrent use. Readers always get
// a consistent snapshot of a record, never a partially updated one.
package store

import (
	"errors"

	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
)

// ErrNotFound is returned when a task or project id is unknown.
var ErrNotFound = errors.New("store: not found")

// StatusStore is the registry for task and project status.
type StatusStore interface {
	// PutTask inserts or replaces the status for a task.
	PutTask(status datatypes.TaskStatus) error

	// GetTask returns the status for a task id, or ErrNotFound.
	GetTask(taskID string) (datatypes.TaskStatus, error)

	// ListTasks returns all task statuses in unspecified order.
	ListTasks() ([]datatypes.TaskStatus, error)

	// PutProject inserts or replaces a project record.
	PutProject(record datatypes.ProjectRecord) error

	// GetProject returns the record for a project id, or ErrNotFound.
	GetProject(projectID string) (datatypes.ProjectRecord, error)

	// ListProjects returns all project records in unspecified order.
	ListProjects() ([]datatypes.ProjectRecord, error)

	// Close releases any resources held by the store.
	Close() error
}
