// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package attempt

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneration indicates the generation call failed or returned
	// unusable output. Retried within the attempt bound.
	ErrGeneration = errors.New("attempt: generation failed")

	// ErrApply indicates the generated output produced no usable file
	// writes. Treated the same as a rejected review for retries.
	ErrApply = errors.New("attempt: no usable file changes")

	// ErrRepository indicates a git operation failed. Never retried;
	// surfaced immediately with the underlying message.
	ErrRepository = errors.New("attempt: repository operation failed")

	// ErrEmptyChangeSet indicates the reviewer approved a candidate
	// that wrote no files. Approval alone is not success; a commit
	// needs at least one modified file.
	ErrEmptyChangeSet = errors.New("attempt: approved change-set wrote no files")
)

// ExhaustedError is returned when every attempt was rejected. It
// carries the final rejection feedback as the diagnostic detail.
type ExhaustedError struct {
	Attempts int
	Feedback string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("attempt: review rejected after %d attempts: %s", e.Attempts, e.Feedback)
}
