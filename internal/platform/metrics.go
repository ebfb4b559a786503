package platform

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	CommandsPublished *prometheus.CounterVec
	UploadsTotal      *prometheus.CounterVec
)

// InitMetrics registers core metrics collectors.
func InitMetrics() {
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chabench",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed, labeled by method and route.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chabench",
		Name:      "http_request_duration_seconds",
		Help:      "Histogram of request durations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	CommandsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chabench",
		Name:      "commands_published_total",
		Help:      "Commands published onto the COMMAND stream, labeled by outcome.",
	}, []string{"outcome"})

	UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chabench",
		Name:      "uploads_total",
		Help:      "Transcript uploads forwarded to the analysis service, labeled by outcome.",
	}, []string{"outcome"})

	prometheus.MustRegister(HTTPRequestsTotal, HTTPDuration, CommandsPublished, UploadsTotal)
}
