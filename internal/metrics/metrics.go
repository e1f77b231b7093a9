// Package metrics holds the Prometheus collectors reported by the server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "camvault"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics exposes Prometheus collectors for the registry, the snapshot pipeline and HTTP.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	cameraOps       *prometheus.CounterVec
	photoIngests    *prometheus.CounterVec
	photoDeletes    *prometheus.CounterVec
	reconciliation  *prometheus.CounterVec
	captures        *prometheus.CounterVec
}

// New constructs the collectors and registers them on reg.
// Any registration error panics, which surfaces duplicate wiring early.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests by route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		cameraOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "camera_operations_total",
				Help:      "Camera registry operations by outcome.",
			},
			[]string{"op", "result"},
		),
		photoIngests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "photo_ingests_total",
				Help:      "Snapshot ingests by outcome.",
			},
			[]string{"result"},
		),
		photoDeletes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "photo_deletes_total",
				Help:      "Photo deletions by outcome.",
			},
			[]string{"result"},
		),
		reconciliation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_candidates_total",
				Help:      "Blobs or records left inconsistent after a partial failure.",
			},
			[]string{"reason"},
		),
		captures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "captures_total",
				Help:      "Capture session outcomes.",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.requestDuration, m.cameraOps, m.photoIngests, m.photoDeletes, m.reconciliation, m.captures)
	return m
}

// ObserveRequest records an HTTP request duration.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// CameraOp counts one registry operation.
func (m *Metrics) CameraOp(op string, err error) {
	if m == nil {
		return
	}
	m.cameraOps.WithLabelValues(op, result(err)).Inc()
}

// PhotoIngest counts one ingest attempt.
func (m *Metrics) PhotoIngest(err error) {
	if m == nil {
		return
	}
	m.photoIngests.WithLabelValues(result(err)).Inc()
}

// PhotoDelete counts one delete attempt.
func (m *Metrics) PhotoDelete(err error) {
	if m == nil {
		return
	}
	m.photoDeletes.WithLabelValues(result(err)).Inc()
}

// ReconciliationCandidate counts an orphaned blob or dangling record.
func (m *Metrics) ReconciliationCandidate(reason string) {
	if m == nil {
		return
	}
	m.reconciliation.WithLabelValues(reason).Inc()
}

// Capture counts a capture session outcome such as "captured", "cancelled" or "failed".
func (m *Metrics) Capture(outcome string) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
