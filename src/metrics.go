package storyverse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storyverse",
		Name:      "generation_requests_total",
		Help:      "Text generation requests by round kind and outcome.",
	}, []string{"kind", "status"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storyverse",
		Name:      "generation_duration_seconds",
		Help:      "Latency of text generation requests.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"kind"})

	parseShortfalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storyverse",
		Name:      "parse_shortfalls_total",
		Help:      "Replies that had to be padded with fallback entries.",
	}, []string{"kind"})

	imageRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storyverse",
		Name:      "image_renders_total",
		Help:      "Visual concept renders by outcome.",
	}, []string{"status"})

	segmentsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storyverse",
		Name:      "segments_appended_total",
		Help:      "Story segments appended by contributor.",
	}, []string{"contributor"})
)
