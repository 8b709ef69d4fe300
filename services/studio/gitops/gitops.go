// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gitops wraps the git command line for repository setup,
// branching, committing, and pushing.
//
// All operations run against a caller-provided working directory, so
// multiple tasks can operate on isolated clones of the same repository
// without interfering with each other.
package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var branchSanitizer = regexp.MustCompile(`[^a-z0-9-]+`)

// SanitizeBranchName converts an arbitrary project name into a valid
// git branch segment: lowercase, with runs of disallowed characters
// collapsed into single hyphens.
func SanitizeBranchName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = branchSanitizer.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Client executes git operations in local working copies.
//
// # Description
//
// Thin gateway over the git binary. A Client holds the credentials used
// for remote operations; per-repository state lives in the working
// directory passed to each method.
//
// # Thread Safety
//
// Safe for concurrent use as long as callers do not share a working
// directory between goroutines. Use a PushLocker to serialize pushes
// to the same branch.
type Client struct {
	token  string
	logger *slog.Logger
}

// NewClient creates a git gateway.
//
// # Inputs
//
//   - token: GitHub token for authenticated clone and push. May be
//     empty for public read-only use; push will then fail with
//     ErrMissingToken.
//   - logger: Destination for operation logs. If nil, slog.Default().
func NewClient(token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{token: token, logger: logger}
}

// NewClientFromEnv creates a Client using the GITHUB_TOKEN environment
// variable.
func NewClientFromEnv(logger *slog.Logger) *Client {
	return NewClient(os.Getenv("GITHUB_TOKEN"), logger)
}

// authURL rewrites an https remote URL to embed the token, so clone
// and push work without credential helpers.
func (c *Client) authURL(repoURL string) (string, error) {
	if c.token == "" {
		return repoURL, nil
	}
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("parse repo url: %w", err)
	}
	if u.Scheme != "https" {
		return repoURL, nil
	}
	u.User = url.UserPassword("x-access-token", c.token)
	return u.String(), nil
}

// run executes git with the given args in dir, returning combined
// output. Output is included in the error on failure; the token never
// appears in argv except inside the remote URL, which git does not
// echo back on the commands used here.
func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// SetupRepository clones repoURL into localPath. If localPath already
// contains a clone, it is fetched and reset to the remote default
// branch instead.
//
// # Inputs
//
//   - ctx: Cancels the underlying git processes.
//   - repoURL: https remote URL.
//   - localPath: Target directory for the working copy.
func (c *Client) SetupRepository(ctx context.Context, repoURL, localPath string) error {
	cloneURL, err := c.authURL(repoURL)
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(localPath + "/.git"); statErr == nil {
		c.logger.Debug("reusing existing clone", "path", localPath)
		if _, err := c.run(ctx, localPath, "fetch", "origin"); err != nil {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(localPath, 0750); err != nil {
		return fmt.Errorf("create clone directory: %w", err)
	}
	if _, err := c.run(ctx, "", "clone", cloneURL, localPath); err != nil {
		return err
	}
	c.logger.Info("cloned repository", "url", repoURL, "path", localPath)
	return nil
}

// CreateFeatureBranch creates and checks out branch in the working
// copy at localPath. If the branch already exists locally or on the
// remote it is checked out instead.
func (c *Client) CreateFeatureBranch(ctx context.Context, localPath, branch string) error {
	if _, err := os.Stat(localPath + "/.git"); err != nil {
		return ErrRepoNotCloned
	}

	// Prefer an existing branch, local or remote, so retried tasks
	// land on the same branch as their project.
	if _, err := c.run(ctx, localPath, "checkout", branch); err == nil {
		return nil
	}
	if _, err := c.run(ctx, localPath, "checkout", "-b", branch); err != nil {
		return err
	}
	c.logger.Info("created feature branch", "branch", branch, "path", localPath)
	return nil
}

// CommitChanges stages everything in the working copy and commits with
// message.
//
// # Outputs
//
//   - bool: True if a commit was created; false if the working copy
//     had no changes to commit.
//   - error: Non-nil only on git failure, not on an empty tree.
func (c *Client) CommitChanges(ctx context.Context, localPath, message string) (bool, error) {
	if _, err := c.run(ctx, localPath, "add", "-A"); err != nil {
		return false, err
	}

	status, err := c.run(ctx, localPath, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(status) == "" {
		c.logger.Debug("nothing to commit", "path", localPath)
		return false, nil
	}

	if _, err := c.run(ctx, localPath, "-c", "user.name=studio", "-c", "user.email=studio@localhost",
		"commit", "-m", message); err != nil {
		return false, err
	}
	return true, nil
}

// SyncWithRemote brings the working copy's branch up to date with
// origin before a push. Subtasks of one project commit from separate
// clones onto a shared feature branch; whichever pushes second must
// replay its commit on top of the remote tip or the push is rejected
// as non-fast-forward.
//
// # Description
//
// Fetches origin and, when the remote branch exists, rebases the local
// commits onto it. A rebase that cannot apply cleanly is aborted so
// the working copy is left on its own commits for diagnosis.
func (c *Client) SyncWithRemote(ctx context.Context, localPath, branch string) error {
	if _, err := os.Stat(localPath + "/.git"); err != nil {
		return ErrRepoNotCloned
	}

	if _, err := c.run(ctx, localPath, "fetch", "origin"); err != nil {
		return err
	}
	if _, err := c.run(ctx, localPath, "rev-parse", "--verify", "origin/"+branch); err != nil {
		// The branch has never been pushed; nothing to reconcile.
		return nil
	}

	if _, err := c.run(ctx, localPath, "-c", "user.name=studio", "-c", "user.email=studio@localhost",
		"rebase", "origin/"+branch); err != nil {
		_, _ = c.run(ctx, localPath, "rebase", "--abort")
		return fmt.Errorf("reconcile with origin/%s: %w", branch, err)
	}
	c.logger.Debug("reconciled with remote branch", "branch", branch, "path", localPath)
	return nil
}

// PushChanges pushes branch from the working copy to origin.
// Requires a token.
func (c *Client) PushChanges(ctx context.Context, localPath, branch string) error {
	if c.token == "" {
		return ErrMissingToken
	}
	if _, err := c.run(ctx, localPath, "push", "-u", "origin", branch); err != nil {
		return err
	}
	c.logger.Info("pushed branch", "branch", branch)
	return nil
}

// CurrentCommit returns the HEAD commit hash of the working copy, or
// an empty string if it cannot be determined.
func (c *Client) CurrentCommit(ctx context.Context, localPath string) string {
	out, err := c.run(ctx, localPath, "rev-parse", "HEAD")
	if err != nil {
		c.logger.Debug("commit hash unavailable", "path", localPath, "error", err.Error())
		return ""
	}
	return strings.TrimSpace(out)
}

// RestoreFiles discards uncommitted modifications to the named files,
// returning them to their committed content. Files that do not exist
// in HEAD are removed.
func (c *Client) RestoreFiles(ctx context.Context, localPath string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	for _, p := range paths {
		if _, err := c.run(ctx, localPath, "checkout", "--", p); err != nil {
			// Path not tracked in HEAD; the attempt created it.
			if removeErr := os.Remove(localPath + "/" + p); removeErr != nil && !os.IsNotExist(removeErr) {
				return fmt.Errorf("restore %s: %w", p, removeErr)
			}
		}
	}
	return nil
}
