// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics counts runs and probes in a Prometheus registry.
//
// The registry can be written in the node exporter textfile format after
// the invocation, or served over HTTP while runs are in progress.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policyharness"

// Metrics holds the collectors of one invocation.
type Metrics struct {
	reg *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	probes       *prometheus.CounterVec
	probeErrors  *prometheus.CounterVec
	traces       *prometheus.CounterVec
	controllerUp prometheus.Gauge
}

// New returns Metrics registered in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by module and result.",
		}, []string{"module", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run, from controller start to trace archival.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
		}, []string{"module"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probes executed by module and randomized mode.",
		}, []string{"module", "randomized"}),
		probeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_errors_total",
			Help:      "Probes whose traffic tool could not be run.",
		}, []string{"module"}),
		traces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traces_total",
			Help:      "Runs by module and whether the controller produced a trace.",
		}, []string{"module", "produced"}),
		controllerUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_up",
			Help:      "1 while a controller process group is running.",
		}),
	}
	m.reg.MustRegister(m.runs, m.runDuration, m.probes, m.probeErrors, m.traces, m.controllerUp)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// RunFinished records a finished run.  result is "ok" or the failure
// class.
func (m *Metrics) RunFinished(module, result string, seconds float64) {
	m.runs.WithLabelValues(module, result).Inc()
	if result == "ok" {
		m.runDuration.WithLabelValues(module).Observe(seconds)
	}
}

// Probe records an executed probe.
func (m *Metrics) Probe(module string, randomized, failed bool) {
	m.probes.WithLabelValues(module, strconv.FormatBool(randomized)).Inc()
	if failed {
		m.probeErrors.WithLabelValues(module).Inc()
	}
}

// Trace records whether a run produced a trace.
func (m *Metrics) Trace(module string, produced bool) {
	m.traces.WithLabelValues(module, strconv.FormatBool(produced)).Inc()
}

// ControllerUp sets the controller gauge.
func (m *Metrics) ControllerUp(up bool) {
	if up {
		m.controllerUp.Set(1)
	} else {
		m.controllerUp.Set(0)
	}
}

// WriteFile writes the registry to path in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
