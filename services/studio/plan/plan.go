// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package plan decomposes a project request into a dependency graph
// of subtasks via a planning model.
//
// Dependencies are integer ordinals into the emitted task list and
// must reference strictly earlier tasks, which makes every accepted
// graph acyclic by construction. All subtasks of one project share a
// feature branch derived from the project name and id, so independent
// executions converge on one branch.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/halcyonworks/gamestudio/services/llm"
	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
	"github.com/halcyonworks/gamestudio/services/studio/gitops"
)

const plannerSystemPrompt = `You are an expert project manager for software development. Your task is to:

1. Analyze the repository and understand its current state
2. Break down the requested project into smaller, focused tasks
3. For each task, provide:
   - A clear, concise task description
   - Detailed requirements and acceptance criteria
   - Dependencies between tasks (if any)
   - List of relevant files that will need to be modified or referenced
   - List of relevant requirements from the original project description

Format your response as a JSON array of tasks, where each task has:
- task_description: A brief title
- detailed_description: Detailed requirements and context
- dependencies: List of task numbers that must be completed first (or empty list)
- relevant_files: List of files that are relevant to this specific task
- original_requirements: List of requirements from the original project description that this task implements

Dependencies may only reference tasks that appear earlier in the array.`

// rawTask mirrors one element of the planner's JSON output.
type rawTask struct {
	TaskDescription      string   `json:"task_description"`
	DetailedDescription  string   `json:"detailed_description"`
	Dependencies         []int    `json:"dependencies"`
	RelevantFiles        []string `json:"relevant_files"`
	OriginalRequirements []string `json:"original_requirements"`
}

// Builder produces task graphs from project requests.
type Builder struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewBuilder creates a Builder backed by a planning model. logger may
// be nil.
func NewBuilder(client llm.LLMClient, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{client: client, logger: logger}
}

// AnalyzeRepository summarizes the current repository state from its
// key files, for inclusion in the planning prompt. Missing files are
// noted rather than fatal.
func AnalyzeRepository(root string, keyFiles []string) string {
	if len(keyFiles) == 0 {
		keyFiles = []string{"README.md"}
	}

	var b strings.Builder
	b.WriteString("Analysis of key files:\n")
	for _, rel := range keyFiles {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			fmt.Fprintf(&b, "\nNote: Key file %s not found\n", rel)
			continue
		}
		fmt.Fprintf(&b, "\nContents of %s:\n%s\n", rel, data)
	}
	return b.String()
}

// Build decomposes a project into an ordered, validated task graph.
//
// # Inputs
//
//   - ctx: Bounds the planning model call.
//   - project: The submitted request. ID and Name are required.
//   - repoSummary: Repository analysis text for the prompt.
//
// # Outputs
//
//   - datatypes.TaskGraph: Subtasks in emission order with composed
//     instructions and the shared feature branch name.
//   - error: ErrDecomposition when the output cannot be parsed or a
//     task is incomplete; ErrValidation when a dependency index is
//     out of range or not strictly earlier than its task.
func (b *Builder) Build(ctx context.Context, project datatypes.ProjectRequest, repoSummary string) (datatypes.TaskGraph, error) {
	prompt := fmt.Sprintf(`Project Request: %s

Repository Analysis:
%s

Please break this project down into smaller, focused tasks that can be implemented independently where possible.`,
		project.Description, repoSummary)

	response, err := b.client.Generate(ctx, prompt, llm.GenerationParams{
		System:      plannerSystemPrompt,
		Temperature: llm.Float32Ptr(0),
	})
	if err != nil {
		return datatypes.TaskGraph{}, fmt.Errorf("%w: %v", ErrDecomposition, err)
	}

	raw, err := parseTaskList(response)
	if err != nil {
		b.logger.Error("planner output rejected", "project_id", project.ID, "error", err.Error())
		return datatypes.TaskGraph{}, err
	}
	if err := validateDependencies(raw); err != nil {
		return datatypes.TaskGraph{}, err
	}

	subtasks := make([]datatypes.SubtaskSpec, len(raw))
	for i, task := range raw {
		files := task.RelevantFiles
		if len(files) == 0 {
			files = project.KeyFiles
		}
		subtasks[i] = datatypes.SubtaskSpec{
			Ordinal:       i,
			Title:         task.TaskDescription,
			Instructions:  composeInstructions(task),
			DependsOn:     task.Dependencies,
			RelevantFiles: files,
			Requirements:  task.OriginalRequirements,
		}
	}

	graph := datatypes.TaskGraph{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		RepoURL:     project.RepoURL,
		RepoName:    project.RepoName,
		Branch:      BranchName(project.Name, project.ID),
		Subtasks:    subtasks,
		CreatedAt:   time.Now().UTC(),
	}
	b.logger.Info("project decomposed",
		"project_id", project.ID, "subtasks", len(subtasks), "branch", graph.Branch)
	return graph, nil
}

// BranchName derives the shared feature branch from the sanitized
// project name and a stable slice of the project id.
func BranchName(projectName, projectID string) string {
	short := projectID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("feature/%s-%s", gitops.SanitizeBranchName(projectName), short)
}

// parseTaskList decodes the planner's JSON, tolerating a markdown
// code fence around it.
func parseTaskList(response string) ([]rawTask, error) {
	cleaned := stripFences(strings.TrimSpace(response))

	var raw []rawTask
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: parse JSON: %v", ErrDecomposition, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty task list", ErrDecomposition)
	}

	for i, task := range raw {
		if task.TaskDescription == "" {
			return nil, fmt.Errorf("%w: task %d missing task_description", ErrDecomposition, i)
		}
		if task.DetailedDescription == "" {
			return nil, fmt.Errorf("%w: task %d missing detailed_description", ErrDecomposition, i)
		}
		if task.Dependencies == nil {
			return nil, fmt.Errorf("%w: task %d missing dependencies", ErrDecomposition, i)
		}
	}
	return raw, nil
}

// validateDependencies enforces that every dependency references a
// strictly earlier ordinal. This rules out self-references, forward
// references, and therefore cycles.
func validateDependencies(tasks []rawTask) error {
	for i, task := range tasks {
		for _, dep := range task.Dependencies {
			if dep < 0 || dep >= len(tasks) {
				return fmt.Errorf("%w: task %d depends on out-of-range index %d", ErrValidation, i, dep)
			}
			if dep >= i {
				return fmt.Errorf("%w: task %d depends on non-earlier index %d", ErrValidation, i, dep)
			}
		}
	}
	return nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// composeInstructions builds the self-contained prompt for one
// subtask: title, detailed requirements, originating project
// requirements, relevant files, in that order.
func composeInstructions(task rawTask) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Task: %s\n", task.TaskDescription))
	parts = append(parts, fmt.Sprintf("Requirements:\n%s\n", task.DetailedDescription))

	if len(task.OriginalRequirements) > 0 {
		parts = append(parts, "\nImplementing these requirements from the original project description:")
		for _, req := range task.OriginalRequirements {
			parts = append(parts, fmt.Sprintf("- %s", req))
		}
		parts = append(parts, "")
	}

	if len(task.RelevantFiles) > 0 {
		parts = append(parts, "\nRelevant files to consider:")
		for _, f := range task.RelevantFiles {
			parts = append(parts, fmt.Sprintf("- %s", f))
		}
	}

	return strings.Join(parts, "\n")
}
