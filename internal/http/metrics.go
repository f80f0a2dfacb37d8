package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "redistour",
		Name:      "searches_total",
		Help:      "Recommendation searches by flow and outcome.",
	}, []string{"flow", "status"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "redistour",
		Name:      "search_duration_seconds",
		Help:      "End-to-end recommendation pipeline duration.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"flow"})
)
