// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gitops

import "errors"

var (
	// ErrMissingToken indicates no GitHub token was configured for an
	// operation that requires authenticated access.
	ErrMissingToken = errors.New("gitops: github token not configured")

	// ErrRepoNotCloned indicates an operation was attempted on a
	// working copy that has not been set up.
	ErrRepoNotCloned = errors.New("gitops: repository not cloned")
)
