// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package amethyst

import "github.com/prometheus/client_golang/prometheus"

// GatewayEvents counts gateway events handled by the bot.
// Use RegisterMetrics to register this with a Prometheus registry.
var GatewayEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amethyst_gateway_events_total",
		Help: "Total number of gateway events handled by type",
	},
	[]string{"type"},
)

// RegisterMetrics registers bot metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(GatewayEvents)
}

func recordEvent(eventType string) {
	GatewayEvents.WithLabelValues(eventType).Inc()
}
