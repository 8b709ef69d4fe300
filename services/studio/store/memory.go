// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"sync"

	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
)

// MemoryStore is an in-process StatusStore backed by maps.
//
// # Thread Safety
//
// Safe for concurrent use. Records are copied on the way in and out,
// so a caller can never observe a half-written status and can not
// mutate stored state through a returned value.
type MemoryStore struct {
	mu       sync.RWMutex
	tasks    map[string]datatypes.TaskStatus
	projects map[string]datatypes.ProjectRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    make(map[string]datatypes.TaskStatus),
		projects: make(map[string]datatypes.ProjectRecord),
	}
}

// PutTask inserts or replaces the status for a task.
func (s *MemoryStore) PutTask(status datatypes.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[status.TaskID] = status
	return nil
}

// GetTask returns the status for a task id, or ErrNotFound.
func (s *MemoryStore) GetTask(taskID string) (datatypes.TaskStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.tasks[taskID]
	if !ok {
		return datatypes.TaskStatus{}, ErrNotFound
	}
	return status, nil
}

// ListTasks returns all task statuses in unspecified order.
func (s *MemoryStore) ListTasks() ([]datatypes.TaskStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]datatypes.TaskStatus, 0, len(s.tasks))
	for _, status := range s.tasks {
		out = append(out, status)
	}
	return out, nil
}

// PutProject inserts or replaces a project record.
func (s *MemoryStore) PutProject(record datatypes.ProjectRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy the slice so callers can't mutate stored state afterwards.
	ids := make([]string, len(record.SubtaskIDs))
	copy(ids, record.SubtaskIDs)
	record.SubtaskIDs = ids
	s.projects[record.Request.ID] = record
	return nil
}

// GetProject returns the record for a project id, or ErrNotFound.
func (s *MemoryStore) GetProject(projectID string) (datatypes.ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.projects[projectID]
	if !ok {
		return datatypes.ProjectRecord{}, ErrNotFound
	}
	ids := make([]string, len(record.SubtaskIDs))
	copy(ids, record.SubtaskIDs)
	record.SubtaskIDs = ids
	return record, nil
}

// ListProjects returns all project records in unspecified order.
func (s *MemoryStore) ListProjects() ([]datatypes.ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]datatypes.ProjectRecord, 0, len(s.projects))
	for _, record := range s.projects {
		ids := make([]string, len(record.SubtaskIDs))
		copy(ids, record.SubtaskIDs)
		record.SubtaskIDs = ids
		out = append(out, record)
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

var _ StatusStore = (*MemoryStore)(nil)
