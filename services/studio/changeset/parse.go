// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package changeset parses model output into complete file rewrites
// and applies them to a working copy.
//
// The wire format is a sequence of blocks, each a FILE: marker line
// naming a path followed by a fenced content block:
//
//	FILE:path/to/file
//	```language
//	<entire file content>
//	```
//
// Every block replaces its file wholesale. Diff-style or elided
// content is rejected rather than merged, since a silent partial
// overwrite corrupts the file where a visible failure does not.
package changeset

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Marker introduces a file path at the start of a line.
const Marker = "FILE:"

// FileChange is one parsed file rewrite.
type FileChange struct {
	// Path is relative to the repository root.
	Path string

	// Content is the complete new file content, trimmed of the
	// surrounding fence whitespace.
	Content string
}

// elisionPatterns match placeholder text a model emits when it skips
// part of a file instead of reproducing it. A block containing any of
// these is not a complete rewrite and must not be written.
var elisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rest of (the )?(code|file|implementation) (remains|stays) the same`),
	regexp.MustCompile(`(?i)previous (code|implementation|section) unchanged`),
	regexp.MustCompile(`(?i)existing (code|implementation) (here|unchanged|stays)`),
	regexp.MustCompile(`(?i)(code|content|section) (unchanged|omitted for brevity)`),
	regexp.MustCompile(`(?i)^\s*(//|#|<!--|/\*)?\s*\.\.\.\s*(-->|\*/)?\s*$`),
}

func isElided(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		for _, pat := range elisionPatterns {
			if pat.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// Parse extracts file changes from a model response.
//
// # Description
//
// Splits the response on line-anchored FILE: markers. Each block's
// content is the fenced region after the path line. A block whose
// closing fence is missing is recovered by truncating at the next
// FILE: marker, or at end of input when none follows. Blocks with
// blank content are skipped, not fatal.
//
// # Outputs
//
//   - []FileChange: Parsed rewrites in response order.
//   - error: ErrNoChangesFound when no marker appears at all;
//     ErrMalformedBlock when a block has no opening fence or carries
//     elided content.
func Parse(response string) ([]FileChange, error) {
	logger := slog.Default()

	sections := strings.Split("\n"+response, "\n"+Marker)
	if len(sections) <= 1 {
		return nil, ErrNoChangesFound
	}

	changes := make([]FileChange, 0, len(sections)-1)
	for _, section := range sections[1:] {
		newline := strings.IndexByte(section, '\n')
		if newline == -1 {
			newline = len(section)
		}
		path := strings.TrimSpace(section[:newline])
		if path == "" {
			return nil, fmt.Errorf("%w: marker with no path", ErrMalformedBlock)
		}
		body := section[newline:]

		fenceStart := strings.Index(body, "```")
		if fenceStart == -1 {
			return nil, fmt.Errorf("%w: no code fence for %s", ErrMalformedBlock, path)
		}

		// Skip the language identifier line.
		contentStart := strings.IndexByte(body[fenceStart:], '\n')
		if contentStart == -1 {
			return nil, fmt.Errorf("%w: empty fence for %s", ErrMalformedBlock, path)
		}
		contentStart += fenceStart + 1

		contentEnd := strings.Index(body[contentStart:], "\n```")
		if contentEnd == -1 {
			// Unclosed fence. The section is already truncated at
			// the next marker by the split, so everything that
			// remains is the content.
			logger.Warn("unclosed code fence recovered", "path", path)
			contentEnd = len(body)
		} else {
			contentEnd += contentStart
		}

		content := strings.TrimSpace(body[contentStart:contentEnd])
		if content == "" {
			logger.Warn("empty content block skipped", "path", path)
			continue
		}
		if isElided(content) {
			return nil, fmt.Errorf("%w: elided content in %s", ErrMalformedBlock, path)
		}

		changes = append(changes, FileChange{Path: path, Content: content})
	}

	return changes, nil
}
