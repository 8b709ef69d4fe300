// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the studio
// service.
//
// # Description
//
// Metrics cover the task pipeline end to end:
//   - Project and task counters by terminal status
//   - Generation attempt histograms per task
//   - Task duration histograms
//   - Active worker gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus
// and Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "studio"

const tasksSubsystem = "tasks"

// TaskMetrics holds all Prometheus metrics for task execution.
//
// Initialize once at startup via InitMetrics().
type TaskMetrics struct {
	// ProjectsTotal counts project submissions.
	ProjectsTotal prometheus.Counter

	// TasksTotal counts finished tasks by terminal status.
	// Labels: status (completed, failed)
	TasksTotal *prometheus.CounterVec

	// AttemptsPerTask measures generation attempts consumed per task.
	AttemptsPerTask prometheus.Histogram

	// TaskDurationSeconds measures wall time per task by status.
	// Labels: status (completed, failed)
	TaskDurationSeconds *prometheus.HistogramVec

	// ActiveWorkers tracks tasks currently executing in the pool.
	ActiveWorkers prometheus.Gauge

	// QueuedTasks tracks tasks waiting on dependencies or a worker.
	QueuedTasks prometheus.Gauge
}

// DefaultMetrics is the singleton instance of TaskMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *TaskMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once
// at application startup; a second call panics on duplicate
// registration.
func InitMetrics() *TaskMetrics {
	DefaultMetrics = &TaskMetrics{
		ProjectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tasksSubsystem,
				Name:      "projects_total",
				Help:      "Total number of project submissions",
			},
		),

		TasksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tasksSubsystem,
				Name:      "finished_total",
				Help:      "Total finished tasks by terminal status",
			},
			[]string{"status"},
		),

		AttemptsPerTask: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: tasksSubsystem,
				Name:      "attempts_per_task",
				Help:      "Generation attempts consumed per task",
				Buckets:   []float64{1, 2, 3},
			},
		),

		TaskDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: tasksSubsystem,
				Name:      "duration_seconds",
				Help:      "Wall time per task by terminal status",
				Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"status"},
		),

		ActiveWorkers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: tasksSubsystem,
				Name:      "active_workers",
				Help:      "Tasks currently executing in the worker pool",
			},
		),

		QueuedTasks: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: tasksSubsystem,
				Name:      "queued",
				Help:      "Tasks waiting on dependencies or a free worker",
			},
		),
	}

	return DefaultMetrics
}

// RecordTaskFinished records a terminal task outcome.
//
// # Inputs
//
//   - success: Whether the task completed.
//   - attempts: Generation attempts consumed. Ignored when zero.
//   - seconds: Wall time from dispatch to terminal state.
func (m *TaskMetrics) RecordTaskFinished(success bool, attempts int, seconds float64) {
	status := "completed"
	if !success {
		status = "failed"
	}
	m.TasksTotal.WithLabelValues(status).Inc()
	m.TaskDurationSeconds.WithLabelValues(status).Observe(seconds)
	if attempts > 0 {
		m.AttemptsPerTask.Observe(float64(attempts))
	}
}

// WorkerStarted marks a task moving from queued to executing.
func (m *TaskMetrics) WorkerStarted() {
	m.QueuedTasks.Dec()
	m.ActiveWorkers.Inc()
}

// WorkerDone marks a task leaving the pool.
func (m *TaskMetrics) WorkerDone() {
	m.ActiveWorkers.Dec()
}

// TaskQueued marks a task entering the queue.
func (m *TaskMetrics) TaskQueued() {
	m.QueuedTasks.Inc()
}
