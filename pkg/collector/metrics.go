// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package collector

import "github.com/prometheus/client_golang/prometheus"

// ActiveCollectors tracks collectors currently waiting for events.
// Use RegisterMetrics to register this with a Prometheus registry.
var ActiveCollectors = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "amethyst_collectors_active",
		Help: "Number of collectors waiting for events",
	},
	[]string{"kind"},
)

// RegisterMetrics registers collector metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ActiveCollectors)
}
