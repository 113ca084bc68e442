// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "englishbuddy"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "Completion requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	StoryIngest = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "story_ingest_total",
		Help:      "Story ingestion results (created, duplicate, invalid, error).",
	}, []string{"result"})

	MailSend = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_send_total",
		Help:      "Notebook emails by outcome.",
	}, []string{"outcome"})
)
