// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package repofiles collects repository content for prompt context.
//
// Documentation files are gathered first so the model sees project
// conventions before code, then source files matching a code-extension
// allowlist. Everything returned stays inside the repository root;
// paths that escape it are skipped.
package repofiles

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Priority documentation read before any code.
var docPatterns = []string{"README.md", "CONTRIBUTING.md", "docs/", ".env.example"}

// Source extensions included in code context.
var codeExtensions = map[string]bool{
	".py":   true,
	".js":   true,
	".ts":   true,
	".jsx":  true,
	".tsx":  true,
	".css":  true,
	".html": true,
	".go":   true,
}

// Directories never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// MaxFileBytes is the per-file size cap. Larger files are skipped
// rather than truncated, since a truncated source file reads like a
// broken one.
const MaxFileBytes = 256 * 1024

// MaxCodeFiles caps the code section so a large repository cannot
// blow past the model's context window.
const MaxCodeFiles = 200

// File is a single repository file included in context.
type File struct {
	// Path is relative to the repository root, with forward slashes.
	Path    string
	Content string
}

// Context is the collected repository content, split into the
// documentation and code sections of the prompt.
type Context struct {
	Docs []File
	Code []File
}

// Reader collects files from a repository working copy.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader. If logger is nil, slog.Default() is
// used.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// Collect gathers documentation and code files under root.
//
// # Inputs
//
//   - root: Repository working copy.
//   - relevant: Optional relative paths to read preferentially into
//     the code section even if their extension is not allowlisted.
//
// # Outputs
//
//   - Context: Collected files, each section sorted by path.
//   - error: Non-nil only if root cannot be walked at all. Individual
//     unreadable files are logged and skipped.
func (r *Reader) Collect(root string, relevant []string) (Context, error) {
	var ctx Context
	seen := make(map[string]bool)

	for _, pattern := range docPatterns {
		if strings.HasSuffix(pattern, "/") {
			r.collectDir(root, strings.TrimSuffix(pattern, "/"), &ctx.Docs, seen)
			continue
		}
		if f, ok := r.readOne(root, pattern); ok {
			ctx.Docs = append(ctx.Docs, f)
			seen[f.Path] = true
		}
	}

	for _, rel := range relevant {
		clean := filepath.ToSlash(filepath.Clean(rel))
		if strings.HasPrefix(clean, "../") || filepath.IsAbs(rel) {
			r.logger.Warn("skipping path outside repository", "path", rel)
			continue
		}
		if seen[clean] {
			continue
		}
		if f, ok := r.readOne(root, clean); ok {
			ctx.Code = append(ctx.Code, f)
			seen[clean] = true
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !codeExtensions[filepath.Ext(d.Name())] {
			return nil
		}
		if len(ctx.Code) >= MaxCodeFiles {
			r.logger.Warn("code context truncated", "limit", MaxCodeFiles)
			return fs.SkipAll
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if seen[rel] {
			return nil
		}
		if f, ok := r.readOne(root, rel); ok {
			ctx.Code = append(ctx.Code, f)
			seen[rel] = true
		}
		return nil
	})
	if err != nil {
		return Context{}, fmt.Errorf("walk repository: %w", err)
	}

	sort.Slice(ctx.Docs, func(i, j int) bool { return ctx.Docs[i].Path < ctx.Docs[j].Path })
	sort.Slice(ctx.Code, func(i, j int) bool { return ctx.Code[i].Path < ctx.Code[j].Path })
	return ctx, nil
}

// collectDir reads every file under the named subdirectory.
func (r *Reader) collectDir(root, dir string, out *[]File, seen map[string]bool) {
	base := filepath.Join(root, dir)
	_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if seen[rel] {
			return nil
		}
		if f, ok := r.readOne(root, rel); ok {
			*out = append(*out, f)
			seen[rel] = true
		}
		return nil
	})
}

func (r *Reader) readOne(root, rel string) (File, bool) {
	path := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return File{}, false
	}
	if info.Size() > MaxFileBytes {
		r.logger.Debug("skipping oversized file", "path", rel, "size", info.Size())
		return File{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("unreadable file skipped", "path", rel, "error", err.Error())
		return File{}, false
	}
	return File{Path: rel, Content: string(data)}, true
}
