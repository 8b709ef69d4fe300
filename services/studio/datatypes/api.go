// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Request and response types for the studio HTTP API.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

const (
	// MaxDescriptionBytes bounds project and task descriptions.
	// Prevents memory exhaustion from oversized payloads.
	MaxDescriptionBytes = 64 * 1024 // 64KB

	// MaxKeyFiles bounds the number of key files a submission may name.
	MaxKeyFiles = 64
)

// apiValidate is the shared validator instance for API payloads.
var apiValidate *validator.Validate

func init() {
	apiValidate = validator.New()
	_ = apiValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length (not rune count) so oversized
// multi-byte payloads are still rejected.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxDescriptionBytes
}

// ProjectSubmission is the body of POST /api/projects.
//
// # Validation
//
// Uses go-playground/validator:
//   - ProjectName: required
//   - Description: required, max 64KB
//   - KeyFiles: at most MaxKeyFiles entries
type ProjectSubmission struct {
	ProjectName string   `json:"project_name" validate:"required"`
	Description string   `json:"description" validate:"required,maxbytes"`
	RepoURL     string   `json:"repo_url,omitempty" validate:"omitempty,url"`
	RepoName    string   `json:"repo_name,omitempty"`
	KeyFiles    []string `json:"key_files,omitempty" validate:"max=64"`
}

// Validate checks the submission against its validation tags.
func (p *ProjectSubmission) Validate() error {
	return apiValidate.Struct(p)
}

// ProjectSubmissionResponse is the body returned by POST /api/projects.
type ProjectSubmissionResponse struct {
	ProjectID  string   `json:"project_id"`
	SubtaskIDs []string `json:"subtask_ids"`
	Message    string   `json:"message"`
}

// TaskSubmission is the body of POST /api/tasks (single ad-hoc task,
// no decomposition).
type TaskSubmission struct {
	TaskDescription     string `json:"task_description" validate:"required"`
	DetailedDescription string `json:"detailed_description,omitempty" validate:"omitempty,maxbytes"`
	RepoURL             string `json:"repo_url,omitempty" validate:"omitempty,url"`
	RepoName            string `json:"repo_name,omitempty"`
}

// Validate checks the submission against its validation tags.
func (t *TaskSubmission) Validate() error {
	return apiValidate.Struct(t)
}

// TaskSubmissionResponse is the body returned by POST /api/tasks.
type TaskSubmissionResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}
