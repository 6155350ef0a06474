// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

// Package observability provides Prometheus metrics for the authentication core
// and an HTTP handler that exposes them with health probes.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics contains the authentication core's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthRequestsTotal  *prometheus.CounterVec
	TokenChecksTotal   *prometheus.CounterVec
	HashDuration       *prometheus.HistogramVec
	RegistrationsTotal prometheus.Counter
}

// NewMetrics creates and registers the authentication metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_requests_total",
				Help: "Total number of authentication service calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		TokenChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_token_checks_total",
				Help: "Total number of token verifications by result kind",
			},
			[]string{"result"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authcore_password_hash_duration_seconds",
				Help:    "Time spent hashing or verifying passwords",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		RegistrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authcore_registrations_total",
				Help: "Total number of successful registrations",
			},
		),
	}

	reg.MustRegister(m.AuthRequestsTotal)
	reg.MustRegister(m.TokenChecksTotal)
	reg.MustRegister(m.HashDuration)
	reg.MustRegister(m.RegistrationsTotal)

	return m
}

// RecordRequest counts one service call.
func (m *Metrics) RecordRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordTokenCheck counts one token verification. result is "valid" or the
// failure code.
func (m *Metrics) RecordTokenCheck(result string) {
	if m == nil {
		return
	}
	m.TokenChecksTotal.WithLabelValues(result).Inc()
}

// RecordRegistration counts one persisted registration.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.RegistrationsTotal.Inc()
}

// ObserveHash records how long a hash or verify call took.
func (m *Metrics) ObserveHash(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.HashDuration.WithLabelValues(operation).Observe(d.Seconds())
}
