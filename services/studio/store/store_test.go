// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
)

// newStores returns one instance of each StatusStore implementation,
// so every test runs against both.
func newStores(t *testing.T) map[string]StatusStore {
	t.Helper()

	badgerStore, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = badgerStore.Close() })

	memStore := NewMemoryStore()
	t.Cleanup(func() { _ = memStore.Close() })

	return map[string]StatusStore{
		"memory": memStore,
		"badger": badgerStore,
	}
}

func sampleTask(id string) datatypes.TaskStatus {
	now := time.Now().UTC().Truncate(time.Second)
	return datatypes.TaskStatus{
		TaskID:          id,
		ProjectID:       "proj-1",
		State:           datatypes.TaskStateQueued,
		Message:         "queued",
		TaskDescription: "implement player movement",
		BranchName:      "feature/player-movement-abc12345",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestPutGetTask(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleTask("task-1")
			require.NoError(t, s.PutTask(want))

			got, err := s.GetTask("task-1")
			require.NoError(t, err)
			assert.Equal(t, want.TaskID, got.TaskID)
			assert.Equal(t, want.State, got.State)
			assert.Equal(t, want.BranchName, got.BranchName)
		})
	}
}

func TestGetTaskNotFound(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetTask("missing")
			assert.True(t, errors.Is(err, ErrNotFound), "want ErrNotFound, got %v", err)
		})
	}
}

func TestPutTaskOverwrites(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			status := sampleTask("task-1")
			require.NoError(t, s.PutTask(status))

			status.State = datatypes.TaskStateCompleted
			status.Attempts = 2
			require.NoError(t, s.PutTask(status))

			got, err := s.GetTask("task-1")
			require.NoError(t, err)
			assert.Equal(t, datatypes.TaskStateCompleted, got.State)
			assert.Equal(t, 2, got.Attempts)
		})
	}
}

func TestListTasks(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				require.NoError(t, s.PutTask(sampleTask(fmt.Sprintf("task-%d", i))))
			}

			tasks, err := s.ListTasks()
			require.NoError(t, err)
			assert.Len(t, tasks, 5)

			seen := make(map[string]bool, len(tasks))
			for _, task := range tasks {
				seen[task.TaskID] = true
			}
			for i := 0; i < 5; i++ {
				assert.True(t, seen[fmt.Sprintf("task-%d", i)])
			}
		})
	}
}

func TestListTasksEmpty(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			tasks, err := s.ListTasks()
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestPutGetProject(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			record := datatypes.ProjectRecord{
				Request: datatypes.ProjectRequest{
					ID:          "proj-1",
					Name:        "Space Shooter",
					Description: "a small arcade game",
					RepoURL:     "https://github.com/halcyonworks/space-shooter",
					RepoName:    "space-shooter",
				},
				SubtaskIDs: []string{"task-1", "task-2"},
				Branch:     "feature/space-shooter-abc12345",
				CreatedAt:  time.Now().UTC().Truncate(time.Second),
			}
			require.NoError(t, s.PutProject(record))

			got, err := s.GetProject("proj-1")
			require.NoError(t, err)
			assert.Equal(t, record.Request.Name, got.Request.Name)
			assert.Equal(t, record.SubtaskIDs, got.SubtaskIDs)
			assert.Equal(t, record.Branch, got.Branch)
		})
	}
}

func TestGetProjectNotFound(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetProject("missing")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestListProjects(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				require.NoError(t, s.PutProject(datatypes.ProjectRecord{
					Request: datatypes.ProjectRequest{ID: fmt.Sprintf("proj-%d", i)},
				}))
			}

			records, err := s.ListProjects()
			require.NoError(t, err)
			assert.Len(t, records, 3)
		})
	}
}

func TestMemoryStoreCopiesSubtaskIDs(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	record := datatypes.ProjectRecord{
		Request:    datatypes.ProjectRequest{ID: "proj-1"},
		SubtaskIDs: []string{"task-1"},
	}
	require.NoError(t, s.PutProject(record))

	got, err := s.GetProject("proj-1")
	require.NoError(t, err)
	got.SubtaskIDs[0] = "mutated"

	again, err := s.GetProject("proj-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", again.SubtaskIDs[0])
}

func TestConcurrentWrites(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					status := sampleTask(fmt.Sprintf("task-%d", i))
					assert.NoError(t, s.PutTask(status))
				}(i)
			}
			wg.Wait()

			tasks, err := s.ListTasks()
			require.NoError(t, err)
			assert.Len(t, tasks, 20)
		})
	}
}

func TestBadgerStoreRequiresPath(t *testing.T) {
	_, err := NewBadgerStore(BadgerConfig{})
	assert.Error(t, err)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.PutTask(sampleTask("task-1")))
	require.NoError(t, s.Close())

	reopened, err := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetTask("task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskID)
}
