// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
)

// Key prefixes keep task and project records in separate key ranges so
// list operations can use prefix iteration.
const (
	taskKeyPrefix    = "task/"
	projectKeyPrefix = "project/"
)

// BadgerStore is a StatusStore backed by BadgerDB.
//
// # Description
//
// Persists task and project records as JSON values, keyed by id under
// a type prefix. Statuses survive process restarts, letting a
// redeployed service keep answering status queries for tasks that ran
// before the restart.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide snapshot
// isolation so readers never observe a partially written record.
type BadgerStore struct {
	db *badger.DB
}

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory disables disk persistence. Useful for testing.
	InMemory bool

	// Logger receives BadgerDB's internal log output. If nil,
	// BadgerDB logging is disabled.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerStore opens a BadgerDB-backed status store.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory.
//
// # Outputs
//
//   - *BadgerStore: The opened store. Caller must Close() when done.
//   - error: Non-nil if the database cannot be opened.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// PutTask inserts or replaces the status for a task.
func (s *BadgerStore) PutTask(status datatypes.TaskStatus) error {
	return s.put(taskKeyPrefix+status.TaskID, status)
}

// GetTask returns the status for a task id, or ErrNotFound.
func (s *BadgerStore) GetTask(taskID string) (datatypes.TaskStatus, error) {
	var status datatypes.TaskStatus
	if err := s.get(taskKeyPrefix+taskID, &status); err != nil {
		return datatypes.TaskStatus{}, err
	}
	return status, nil
}

// ListTasks returns all task statuses in unspecified order.
func (s *BadgerStore) ListTasks() ([]datatypes.TaskStatus, error) {
	out := make([]datatypes.TaskStatus, 0)
	err := s.list(taskKeyPrefix, func(val []byte) error {
		var status datatypes.TaskStatus
		if err := json.Unmarshal(val, &status); err != nil {
			return err
		}
		out = append(out, status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutProject inserts or replaces a project record.
func (s *BadgerStore) PutProject(record datatypes.ProjectRecord) error {
	return s.put(projectKeyPrefix+record.Request.ID, record)
}

// GetProject returns the record for a project id, or ErrNotFound.
func (s *BadgerStore) GetProject(projectID string) (datatypes.ProjectRecord, error) {
	var record datatypes.ProjectRecord
	if err := s.get(projectKeyPrefix+projectID, &record); err != nil {
		return datatypes.ProjectRecord{}, err
	}
	return record, nil
}

// ListProjects returns all project records in unspecified order.
func (s *BadgerStore) ListProjects() ([]datatypes.ProjectRecord, error) {
	out := make([]datatypes.ProjectRecord, 0)
	err := s.list(projectKeyPrefix, func(val []byte) error {
		var record datatypes.ProjectRecord
		if err := json.Unmarshal(val, &record); err != nil {
			return err
		}
		out = append(out, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) get(key string, dest any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *BadgerStore) list(prefix string, visit func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(visit); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ StatusStore = (*BadgerStore)(nil)
