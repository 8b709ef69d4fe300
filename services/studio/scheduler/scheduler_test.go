// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/halcyonworks/gamestudio/services/studio/attempt"
	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
	"github.com/halcyonworks/gamestudio/services/studio/store"
)

// fakeRunner records task start/end events and completes after a
// short delay. Individual task descriptions can be told to fail.
type fakeRunner struct {
	mu      sync.Mutex
	events  []string
	active  int
	maxSeen int
	failing map[string]bool
	delay   time.Duration
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{failing: make(map[string]bool), delay: 10 * time.Millisecond}
}

func (f *fakeRunner) Run(_ context.Context, task attempt.Task) (attempt.Result, error) {
	f.mu.Lock()
	f.events = append(f.events, "start:"+task.Description)
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.active--
	f.events = append(f.events, "end:"+task.Description)
	fail := f.failing[task.Description]
	f.mu.Unlock()

	if fail {
		return attempt.Result{}, errors.New("task failed")
	}
	return attempt.Result{Branch: task.Branch, Attempts: 1}, nil
}

func (f *fakeRunner) eventIndex(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.events {
		if e == event {
			return i
		}
	}
	return -1
}

// fakeWorkspace hands out temp dirs without touching git.
type fakeWorkspace struct {
	mu       sync.Mutex
	prepared []string
	failAll  bool
	dir      string
}

func (f *fakeWorkspace) Prepare(_ context.Context, taskID string, _ datatypes.TaskGraph) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", errors.New("clone failed")
	}
	f.prepared = append(f.prepared, taskID)
	return f.dir, nil
}

func (f *fakeWorkspace) Release(string) {}

func graphOf(subs ...datatypes.SubtaskSpec) datatypes.TaskGraph {
	return datatypes.TaskGraph{
		ProjectID:   "proj-1",
		ProjectName: "Game",
		Branch:      "feature/game-abc12345",
		Subtasks:    subs,
		CreatedAt:   time.Now().UTC(),
	}
}

func sub(ordinal int, title string, deps ...int) datatypes.SubtaskSpec {
	if deps == nil {
		deps = []int{}
	}
	return datatypes.SubtaskSpec{Ordinal: ordinal, Title: title, Instructions: title, DependsOn: deps}
}

func newScheduler(t *testing.T, runner Runner, workers int) (*Scheduler, store.StatusStore) {
	t.Helper()
	statuses := store.NewMemoryStore()
	ws := &fakeWorkspace{dir: t.TempDir()}
	return New(runner, ws, statuses, nil, nil, workers), statuses
}

func TestExecuteReturnsImmediately(t *testing.T) {
	runner := newFakeRunner()
	runner.delay = 200 * time.Millisecond
	s, statuses := newScheduler(t, runner, 2)

	begin := time.Now()
	ids, err := s.Execute(context.Background(), graphOf(sub(0, "A"), sub(1, "B")))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > 100*time.Millisecond {
		t.Errorf("Execute blocked for %v", elapsed)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d task ids", len(ids))
	}

	for ordinal, id := range ids {
		status, err := statuses.GetTask(id)
		if err != nil {
			t.Fatalf("ordinal %d: %v", ordinal, err)
		}
		if status.State != datatypes.TaskStateQueued && status.State != datatypes.TaskStateRunning {
			t.Errorf("ordinal %d state = %s", ordinal, status.State)
		}
	}
	s.Wait()
}

func TestDependentWaitsForAllDependencies(t *testing.T) {
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, 4)

	// A and B are independent; C depends on both.
	_, err := s.Execute(context.Background(), graphOf(sub(0, "A"), sub(1, "B"), sub(2, "C", 0, 1)))
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	cStart := runner.eventIndex("start:C")
	if cStart == -1 {
		t.Fatal("C never started")
	}
	for _, dep := range []string{"end:A", "end:B"} {
		if idx := runner.eventIndex(dep); idx == -1 || idx > cStart {
			t.Errorf("%s at %d, C started at %d: dependency not terminal first", dep, idx, cStart)
		}
	}
}

func TestChainRunsSequentially(t *testing.T) {
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, 4)

	_, err := s.Execute(context.Background(), graphOf(sub(0, "A"), sub(1, "B", 0), sub(2, "C", 1)))
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	want := []string{"start:A", "end:A", "start:B", "end:B", "start:C", "end:C"}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.events) != len(want) {
		t.Fatalf("events = %v", runner.events)
	}
	for i, e := range want {
		if runner.events[i] != e {
			t.Fatalf("events = %v, want %v", runner.events, want)
		}
	}
}

func TestFailedDependencyDoesNotStrandDependent(t *testing.T) {
	runner := newFakeRunner()
	runner.failing["A"] = true
	s, _ := newScheduler(t, runner, 4)

	_, err := s.Execute(context.Background(), graphOf(sub(0, "A"), sub(1, "B", 0)))
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if runner.eventIndex("start:B") == -1 {
		t.Error("B never ran after its dependency failed")
	}
	if aEnd, bStart := runner.eventIndex("end:A"), runner.eventIndex("start:B"); aEnd > bStart {
		t.Error("B started before A was terminal")
	}
}

func TestWorkerPoolBound(t *testing.T) {
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, 1)

	_, err := s.Execute(context.Background(), graphOf(sub(0, "A"), sub(1, "B"), sub(2, "C")))
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if runner.maxSeen != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", runner.maxSeen)
	}
}

func TestIndependentTasksRunConcurrently(t *testing.T) {
	runner := newFakeRunner()
	runner.delay = 50 * time.Millisecond
	s, _ := newScheduler(t, runner, 4)

	_, err := s.Execute(context.Background(), graphOf(sub(0, "A"), sub(1, "B"), sub(2, "C")))
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if runner.maxSeen < 2 {
		t.Errorf("max concurrent tasks = %d, want overlap", runner.maxSeen)
	}
}

func TestWorkspaceFailureFailsTaskNotScheduler(t *testing.T) {
	runner := newFakeRunner()
	statuses := store.NewMemoryStore()
	ws := &fakeWorkspace{failAll: true}
	s := New(runner, ws, statuses, nil, nil, 2)

	ids, err := s.Execute(context.Background(), graphOf(sub(0, "A")))
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if runner.eventIndex("start:A") != -1 {
		t.Error("runner invoked despite workspace failure")
	}
	status, err := statuses.GetTask(ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if status.State != datatypes.TaskStateFailed {
		t.Errorf("state = %s", status.State)
	}
	if status.ErrorDetail == "" {
		t.Error("error detail missing")
	}
}

func TestSchedulerSurvivesTaskFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.failing["A"] = true
	s, _ := newScheduler(t, runner, 2)

	// A fails; independent B must still run on the same scheduler.
	_, err := s.Execute(context.Background(), graphOf(sub(0, "A"), sub(1, "B")))
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if runner.eventIndex("end:B") == -1 {
		t.Error("sibling task did not finish after failure")
	}

	// And a whole new graph still executes.
	_, err = s.Execute(context.Background(), graphOf(sub(0, "D")))
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if runner.eventIndex("end:D") == -1 {
		t.Error("scheduler stopped accepting graphs after a failure")
	}
}

func TestCancelledContextFailsPendingTasks(t *testing.T) {
	runner := newFakeRunner()
	runner.delay = 50 * time.Millisecond
	statuses := store.NewMemoryStore()
	s := New(runner, &fakeWorkspace{dir: t.TempDir()}, statuses, nil, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	ids, err := s.Execute(ctx, graphOf(sub(0, "A"), sub(1, "B", 0)))
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	s.Wait()

	// B was gated behind A and the cancelled context; whichever path
	// it took, it must end terminal, never stuck queued forever.
	status, err := statuses.GetTask(ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if !status.State.Terminal() {
		t.Errorf("state = %s", status.State)
	}
}
