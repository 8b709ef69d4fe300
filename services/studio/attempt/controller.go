// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package attempt drives one subtask through the developer/reviewer
// retry loop: generate a candidate change-set, apply it, submit it
// for review, and either commit on approval or retry with the
// rejection feedback carried forward, up to a fixed attempt bound.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/halcyonworks/gamestudio/services/llm"
	"github.com/halcyonworks/gamestudio/services/studio/changeset"
	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
	"github.com/halcyonworks/gamestudio/services/studio/repofiles"
	"github.com/halcyonworks/gamestudio/services/studio/review"
	"github.com/halcyonworks/gamestudio/services/studio/store"
)

var tracer = otel.Tracer("studio/attempt")

// MaxAttempts bounds the retry loop. Generation is non-deterministic
// and can loop on a misunderstanding, so the bound holds even if the
// reviewer never approves.
const MaxAttempts = 3

const generationMaxTokens = 8192

// Judge reviews a candidate change-set.
type Judge interface {
	Review(ctx context.Context, instructions, candidate string) (review.Verdict, error)
}

// Gateway is the slice of git operations the controller needs.
type Gateway interface {
	CommitChanges(ctx context.Context, localPath, message string) (bool, error)
	SyncWithRemote(ctx context.Context, localPath, branch string) error
	PushChanges(ctx context.Context, localPath, branch string) error
	RestoreFiles(ctx context.Context, localPath string, paths []string) error
	CurrentCommit(ctx context.Context, localPath string) string
}

// Locker serializes pushes to a shared branch.
type Locker interface {
	Lock(branch string)
	Unlock(branch string)
}

// Task is one unit of work for the controller. The working copy at
// Workdir must already be cloned and checked out on Branch.
type Task struct {
	TaskID        string
	ProjectID     string
	Description   string
	Instructions  string
	Branch        string
	Workdir       string
	RelevantFiles []string
}

// Result reports a completed task.
type Result struct {
	Branch   string
	Message  string
	Attempts int
}

// Controller runs tasks through the bounded retry loop.
//
// # Thread Safety
//
// Safe for concurrent use; all per-task state is local to Run.
type Controller struct {
	generator llm.LLMClient
	reviewer  Judge
	applier   *changeset.Applier
	reader    *repofiles.Reader
	git       Gateway
	locks     Locker
	statuses  store.StatusStore
	logger    *slog.Logger
}

// NewController wires a Controller from its collaborators. logger may
// be nil.
func NewController(
	generator llm.LLMClient,
	reviewer Judge,
	git Gateway,
	locks Locker,
	statuses store.StatusStore,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		generator: generator,
		reviewer:  reviewer,
		applier:   changeset.NewApplier(logger),
		reader:    repofiles.NewReader(logger),
		git:       git,
		locks:     locks,
		statuses:  statuses,
		logger:    logger,
	}
}

// Run executes the retry state machine for one task.
//
// # Description
//
// Marks the task running before any side effect, then alternates
// generation and review up to MaxAttempts times. Each attempt starts
// from the pristine pre-task file contents; the previous attempt's
// writes are reverted before regenerating so partial edits never
// compound. On approval the writes are committed and pushed under the
// branch lock. Every failure is recorded into the task's status; the
// error return mirrors what was recorded.
func (c *Controller) Run(ctx context.Context, task Task) (Result, error) {
	ctx, span := tracer.Start(ctx, "attempt.Run", trace.WithAttributes(
		attribute.String("task.id", task.TaskID),
		attribute.String("task.branch", task.Branch),
	))
	defer span.End()

	c.setStatus(task, datatypes.TaskStateRunning, "task started", "", 0)

	repoCtx, err := c.reader.Collect(task.Workdir, task.RelevantFiles)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrRepository, err)
		c.setStatus(task, datatypes.TaskStateFailed, "failed to read repository", wrapped.Error(), 0)
		return Result{}, wrapped
	}

	var (
		feedback    string
		lastErr     error
		rejected    bool
		prevWritten []string
		records     []datatypes.AttemptRecord
	)

	for attemptNum := 1; attemptNum <= MaxAttempts; attemptNum++ {
		if len(prevWritten) > 0 {
			if err := c.git.RestoreFiles(ctx, task.Workdir, prevWritten); err != nil {
				wrapped := fmt.Errorf("%w: restore before retry: %v", ErrRepository, err)
				c.setStatus(task, datatypes.TaskStateFailed, "failed to reset working copy", wrapped.Error(), attemptNum-1)
				return Result{}, wrapped
			}
			prevWritten = nil
		}

		record := datatypes.AttemptRecord{Number: attemptNum, Feedback: feedback, Outcome: datatypes.AttemptPending}
		c.logger.Info("starting attempt",
			"task_id", task.TaskID, "attempt", attemptNum, "has_feedback", feedback != "")

		prompt := buildPrompt(task.Instructions, repoCtx, feedback)
		response, err := c.generator.Generate(ctx, prompt, llm.GenerationParams{
			System:      developerSystemPrompt,
			Temperature: llm.Float32Ptr(0),
			MaxTokens:   llm.IntPtr(generationMaxTokens),
		})
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrGeneration, err)
			rejected = false
			feedback = ""
			c.logger.Warn("generation failed", "task_id", task.TaskID, "attempt", attemptNum, "error", err.Error())
			continue
		}

		changes, err := changeset.Parse(response)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrApply, err)
			rejected = false
			feedback = fmt.Sprintf("Your previous response could not be applied: %v. "+
				"Respond with one FILE: marker per changed file, each followed by a fenced block "+
				"containing the complete file content.", err)
			continue
		}

		written, err := c.applier.Apply(task.Workdir, changes)
		prevWritten = written
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrApply, err)
			rejected = false
			feedback = fmt.Sprintf("Your previous change-set could not be written: %v. "+
				"Use repository-relative file paths only.", err)
			continue
		}
		if len(written) == 0 {
			lastErr = fmt.Errorf("%w: every parsed block was empty", ErrApply)
			rejected = false
			feedback = "Your previous response contained only empty file blocks. " +
				"Each FILE: block must contain the complete new content of that file."
			continue
		}

		verdict, err := c.reviewer.Review(ctx, task.Instructions, response)
		if err != nil {
			lastErr = fmt.Errorf("%w: review call: %v", ErrGeneration, err)
			rejected = false
			feedback = ""
			continue
		}

		if !verdict.Approved {
			record.Outcome = datatypes.AttemptRejected
			records = append(records, record)
			rejected = true
			feedback = verdict.Feedback
			c.logger.Info("attempt rejected", "task_id", task.TaskID, "attempt", attemptNum)
			continue
		}

		record.Outcome = datatypes.AttemptApproved
		records = append(records, record)
		return c.publish(ctx, task, attemptNum)
	}

	var terminal error
	var detail string
	if rejected {
		// The final rejection feedback is the error detail, verbatim.
		records[len(records)-1].Outcome = datatypes.AttemptExhaust
		terminal = &ExhaustedError{Attempts: MaxAttempts, Feedback: feedback}
		detail = feedback
	} else {
		terminal = lastErr
		detail = terminal.Error()
	}
	span.RecordError(terminal)
	c.logger.Error("task exhausted all attempts",
		"task_id", task.TaskID, "attempts", MaxAttempts,
		"final_outcome", string(finalOutcome(records)), "error", terminal.Error())
	c.setStatus(task, datatypes.TaskStateFailed, "all attempts failed", detail, MaxAttempts)
	return Result{}, terminal
}

// finalOutcome is the outcome of the last reviewed attempt, or empty
// when no attempt reached review.
func finalOutcome(records []datatypes.AttemptRecord) datatypes.AttemptOutcome {
	if len(records) == 0 {
		return ""
	}
	return records[len(records)-1].Outcome
}

// publish commits and pushes the approved change-set under the branch
// lock, so two tasks converging on one feature branch never race
// their pushes.
func (c *Controller) publish(ctx context.Context, task Task, attempts int) (Result, error) {
	c.locks.Lock(task.Branch)
	defer c.locks.Unlock(task.Branch)

	message := fmt.Sprintf("AI: %s", task.Description)
	committed, err := c.git.CommitChanges(ctx, task.Workdir, message)
	if err != nil {
		wrapped := fmt.Errorf("%w: commit: %v", ErrRepository, err)
		c.setStatus(task, datatypes.TaskStateFailed, "commit failed", wrapped.Error(), attempts)
		return Result{}, wrapped
	}
	if !committed {
		c.setStatus(task, datatypes.TaskStateFailed, "approved change-set was empty", ErrEmptyChangeSet.Error(), attempts)
		return Result{}, ErrEmptyChangeSet
	}

	// A sibling subtask may have pushed to the shared branch since
	// this clone was made; replay our commit on the remote tip so the
	// push fast-forwards.
	if err := c.git.SyncWithRemote(ctx, task.Workdir, task.Branch); err != nil {
		wrapped := fmt.Errorf("%w: sync with remote: %v", ErrRepository, err)
		c.setStatus(task, datatypes.TaskStateFailed, "failed to reconcile with remote branch", wrapped.Error(), attempts)
		return Result{}, wrapped
	}

	if err := c.git.PushChanges(ctx, task.Workdir, task.Branch); err != nil {
		wrapped := fmt.Errorf("%w: push: %v", ErrRepository, err)
		c.setStatus(task, datatypes.TaskStateFailed, "push failed", wrapped.Error(), attempts)
		return Result{}, wrapped
	}

	message = fmt.Sprintf("completed in %d attempt(s)", attempts)
	commit := c.git.CurrentCommit(ctx, task.Workdir)
	if commit != "" {
		message = fmt.Sprintf("%s, commit %.8s", message, commit)
	}
	c.setStatusWithBranch(task, datatypes.TaskStateCompleted, message, attempts)
	c.logger.Info("task completed",
		"task_id", task.TaskID, "branch", task.Branch, "commit", commit, "attempts", attempts)
	return Result{Branch: task.Branch, Message: message, Attempts: attempts}, nil
}

func (c *Controller) setStatus(task Task, state datatypes.TaskState, message, errDetail string, attempts int) {
	c.writeStatus(task, state, message, errDetail, "", attempts)
}

func (c *Controller) setStatusWithBranch(task Task, state datatypes.TaskState, message string, attempts int) {
	c.writeStatus(task, state, message, "", task.Branch, attempts)
}

func (c *Controller) writeStatus(task Task, state datatypes.TaskState, message, errDetail, branch string, attempts int) {
	now := time.Now().UTC()
	status, err := c.statuses.GetTask(task.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		status = datatypes.TaskStatus{
			TaskID:          task.TaskID,
			ProjectID:       task.ProjectID,
			TaskDescription: task.Description,
			CreatedAt:       now,
		}
	} else if err != nil {
		c.logger.Error("status read failed", "task_id", task.TaskID, "error", err.Error())
		return
	}

	status.State = state
	status.Message = message
	status.ErrorDetail = errDetail
	if branch != "" {
		status.BranchName = branch
	}
	if attempts > 0 {
		status.Attempts = attempts
	}
	status.UpdatedAt = now

	if err := c.statuses.PutTask(status); err != nil {
		c.logger.Error("status write failed", "task_id", task.TaskID, "error", err.Error())
	}
}
