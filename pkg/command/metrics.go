// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for command execution metrics.
const (
	StatusSuccess         = "success"
	StatusError           = "error"
	StatusInhibited       = "inhibited"
	StatusMissingArgument = "missing_argument"
	StatusPanic           = "panic"
)

// CommandExecutions is the counter for command executions.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amethyst_command_executions_total",
		Help: "Total number of command executions",
	},
	[]string{"command", "kind", "status"},
)

// CommandDuration is the histogram for command execution duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "amethyst_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command"},
)

// InhibitorDenials is the counter for inhibitor rejections.
// Use RegisterMetrics to register this with a Prometheus registry.
var InhibitorDenials = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amethyst_inhibitor_denials_total",
		Help: "Total number of commands denied by an inhibitor",
	},
	[]string{"inhibitor", "kind"},
)

// RegisterMetrics registers command package metrics with the given Prometheus registry.
// This must be called at startup to make metrics available on /metrics.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
	reg.MustRegister(InhibitorDenials)
}

// RecordCommandExecution increments the command execution counter.
// Parameters:
//   - command: the full hyphenated command name
//   - kind: the invocation kind ("message" or "interaction")
//   - status: execution result (use Status* constants)
func RecordCommandExecution(command, kind, status string) {
	CommandExecutions.WithLabelValues(command, kind, status).Inc()
}

// RecordCommandDuration records the duration of a command execution.
func RecordCommandDuration(command string, duration time.Duration) {
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordInhibitorDenial increments the denial counter for an inhibitor and
// error kind.
func RecordInhibitorDenial(inhibitor string, kind ErrorKind) {
	InhibitorDenials.WithLabelValues(inhibitor, kind.String()).Inc()
}
