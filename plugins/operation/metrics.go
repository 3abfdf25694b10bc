//  Copyright (c) 2020 Cisco and/or its affiliates.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at:
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package operation

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ligato/cps-agent/plugins/operation/api"
)

// Set of raw Prometheus metrics.
// Labels
// * op
// * code
// Do not increment directly, use report* methods.
var (
	operationsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cps",
		Subsystem: "operation",
		Name:      "processed_total",
		Help:      "The total number of dispatched operations by result code.",
	},
		[]string{"op", "code"},
	)
	operationDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cps",
		Subsystem: "operation",
		Name:      "duration_seconds",
		Help:      "Bucketed histogram of handler processing time by operation.",
	},
		[]string{"op"},
	)
	registrationsCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cps",
		Subsystem: "operation",
		Name:      "registrations",
		Help:      "The number of registered key patterns.",
	})
	reconcileDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cps",
		Subsystem: "reconciler",
		Name:      "deleted_total",
		Help:      "The total number of stale stored objects deleted.",
	})
	reconcilePasses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cps",
		Subsystem: "reconciler",
		Name:      "passes_total",
		Help:      "The total number of reconciler passes.",
	})
	directoryConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cps",
		Subsystem: "directory",
		Name:      "connected",
		Help:      "Whether the directory service is reachable (1) or not (0).",
	})
)

func init() {
	prometheus.MustRegister(operationsProcessed)
	prometheus.MustRegister(operationDurationSeconds)
	prometheus.MustRegister(registrationsCount)
	prometheus.MustRegister(reconcileDeleted)
	prometheus.MustRegister(reconcilePasses)
	prometheus.MustRegister(directoryConnected)
}

func reportOperation(op string, err error, sec float64) {
	operationsProcessed.WithLabelValues(op, api.CodeOf(err).String()).Inc()
	operationDurationSeconds.WithLabelValues(op).Observe(sec)
}

func reportRegistrations(n int) {
	registrationsCount.Set(float64(n))
}

func reportReconcile(deleted int) {
	reconcilePasses.Inc()
	reconcileDeleted.Add(float64(deleted))
}

func reportDirectory(connected bool) {
	if connected {
		directoryConnected.Set(1)
	} else {
		directoryConnected.Set(0)
	}
}
