// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package plan

import "errors"

var (
	// ErrDecomposition indicates the model's breakdown could not be
	// parsed as a well-formed task list, or a task is missing a
	// required field.
	ErrDecomposition = errors.New("plan: decomposition output unusable")

	// ErrValidation indicates a structurally invalid task list, such
	// as a dependency index that is out of range or does not
	// reference a strictly earlier task. Rejected before any work
	// starts.
	ErrValidation = errors.New("plan: invalid task graph")
)
