// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gitops

import "sync"

// PushLocker serializes remote pushes per branch. Concurrent tasks on
// the same project share a feature branch; pushing from two clones at
// once makes one push a non-fast-forward failure, so each push holds
// the branch lock for its commit-and-push sequence.
//
// # Thread Safety
//
// Safe for concurrent use.
type PushLocker struct {
	mu       sync.Mutex
	branches map[string]*sync.Mutex
}

// NewPushLocker creates an empty lock registry.
func NewPushLocker() *PushLocker {
	return &PushLocker{branches: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for branch, blocking until it is available.
func (p *PushLocker) Lock(branch string) {
	p.branchLock(branch).Lock()
}

// Unlock releases the lock for branch.
func (p *PushLocker) Unlock(branch string) {
	p.branchLock(branch).Unlock()
}

func (p *PushLocker) branchLock(branch string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.branches[branch]
	if !ok {
		m = &sync.Mutex{}
		p.branches[branch] = m
	}
	return m
}
