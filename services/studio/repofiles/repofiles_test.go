// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package repofiles

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// writeTree creates files under root from a path->content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestCollectDocsBeforeCode(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README.md":       "# Widget",
		"CONTRIBUTING.md": "patches welcome",
		".env.example":    "PORT=8080",
		"docs/guide.md":   "how to",
		"main.py":         "print('hi')",
		"web/app.js":      "alert(1)",
	})

	ctx, err := NewReader(nil).Collect(root, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	docPaths := paths(ctx.Docs)
	for _, want := range []string{"README.md", "CONTRIBUTING.md", ".env.example", "docs/guide.md"} {
		if !contains(docPaths, want) {
			t.Errorf("docs missing %s, got %v", want, docPaths)
		}
	}

	codePaths := paths(ctx.Code)
	for _, want := range []string{"main.py", "web/app.js"} {
		if !contains(codePaths, want) {
			t.Errorf("code missing %s, got %v", want, codePaths)
		}
	}
	if contains(codePaths, "README.md") {
		t.Error("README.md duplicated into code section")
	}
}

func TestCollectSkipsNonCodeFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"image.png": "not really a png",
		"notes.txt": "scratch",
		"game.html": "<html></html>",
	})

	ctx, err := NewReader(nil).Collect(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	codePaths := paths(ctx.Code)
	if contains(codePaths, "image.png") || contains(codePaths, "notes.txt") {
		t.Errorf("non-code files included: %v", codePaths)
	}
	if !contains(codePaths, "game.html") {
		t.Errorf("html file missing: %v", codePaths)
	}
}

func TestCollectSkipsGitAndVendor(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".git/config":        "[core]",
		".git/hooks/x.py":    "print()",
		"vendor/dep/dep.go":  "package dep",
		"node_modules/a.js":  "x",
		"src/game.js":        "x",
	})

	ctx, err := NewReader(nil).Collect(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	codePaths := paths(ctx.Code)
	for _, p := range codePaths {
		if strings.HasPrefix(p, ".git/") || strings.HasPrefix(p, "vendor/") || strings.HasPrefix(p, "node_modules/") {
			t.Errorf("excluded directory leaked: %s", p)
		}
	}
	if !contains(codePaths, "src/game.js") {
		t.Errorf("src/game.js missing: %v", codePaths)
	}
}

func TestCollectRelevantOverridesExtensionFilter(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"config.yaml": "port: 8080",
		"main.py":     "print()",
	})

	ctx, err := NewReader(nil).Collect(root, []string{"config.yaml"})
	if err != nil {
		t.Fatal(err)
	}

	if !contains(paths(ctx.Code), "config.yaml") {
		t.Errorf("relevant file missing: %v", paths(ctx.Code))
	}
}

func TestCollectRejectsEscapingPaths(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "repo")
	writeTree(t, root, map[string]string{"main.py": "print()"})
	writeTree(t, parent, map[string]string{"secret.txt": "hunter2"})

	ctx, err := NewReader(nil).Collect(root, []string{"../secret.txt", "/etc/passwd"})
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range ctx.Code {
		if strings.Contains(f.Content, "hunter2") {
			t.Error("path traversal leaked file outside repository")
		}
	}
}

func TestCollectSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"big.js":   strings.Repeat("x", MaxFileBytes+1),
		"small.js": "ok",
	})

	ctx, err := NewReader(nil).Collect(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	codePaths := paths(ctx.Code)
	if contains(codePaths, "big.js") {
		t.Error("oversized file included")
	}
	if !contains(codePaths, "small.js") {
		t.Error("small file missing")
	}
}

func TestCollectSortedOutput(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"z.py": "z",
		"a.py": "a",
		"m.py": "m",
	})

	ctx, err := NewReader(nil).Collect(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	got := paths(ctx.Code)
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Errorf("code section not sorted: %v", got)
		}
	}
}

func TestCollectCapsCodeFileCount(t *testing.T) {
	root := t.TempDir()
	files := make(map[string]string, MaxCodeFiles+10)
	for i := 0; i < MaxCodeFiles+10; i++ {
		files["src/f"+strconv.Itoa(i)+".js"] = "let x = 1;\n"
	}
	writeTree(t, root, files)

	ctx, err := NewReader(nil).Collect(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Code) > MaxCodeFiles {
		t.Errorf("code files = %d, want at most %d", len(ctx.Code), MaxCodeFiles)
	}
}
