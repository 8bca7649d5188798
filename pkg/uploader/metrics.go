package uploader

import (
	"sync"

	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const OutcomeLabel string = "outcome"

var ensureMetricRegisteringOnce sync.Once

var uploadsCounter *prometheus.CounterVec
var attemptsHist *prometheus.HistogramVec
var bucketCreationsCounter prometheus.Counter

func initializeMetrics(metricRegistry *prometheus.Registry) {
	ensureMetricRegisteringOnce.Do(func() {
		uploadsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpig",
				Subsystem: "uploader",
				Name:      "uploads_total",
				Help:      "The total number of finished uploads, by final outcome.",
			},
			[]string{OutcomeLabel},
		)

		attemptsHist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logpig",
				Subsystem: "uploader",
				Name:      "attempts",
				Help:      "How many attempts an upload used before its final outcome.",
				Buckets:   []float64{1, 2, 3, 5, 8, 13},
			},
			[]string{OutcomeLabel},
		)

		bucketCreationsCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "logpig",
				Subsystem: "uploader",
				Name:      "bucket_creations_total",
				Help:      "How many times the bucket was found missing and a creation was tried.",
			},
		)

		metricRegistry.MustRegister(uploadsCounter, attemptsHist, bucketCreationsCounter)
	})
}

func reportOutcome(outcome domain.UploadOutcome) {
	uploadsCounter.WithLabelValues(outcome.Status.String()).Inc()
	attemptsHist.WithLabelValues(outcome.Status.String()).Observe(float64(outcome.Attempts))
}

func reportBucketCreation() {
	bucketCreationsCounter.Inc()
}
