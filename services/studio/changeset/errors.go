// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package changeset

import "errors"

var (
	// ErrNoChangesFound indicates the generation output contained no
	// recognizable file blocks at all.
	ErrNoChangesFound = errors.New("changeset: no file changes found in response")

	// ErrMalformedBlock indicates a file block could not be parsed,
	// for example a marker line with no fenced content following it.
	ErrMalformedBlock = errors.New("changeset: malformed file block")

	// ErrUnsafePath indicates a file block named a path outside the
	// repository working copy.
	ErrUnsafePath = errors.New("changeset: file path escapes repository")
)
