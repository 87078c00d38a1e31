package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sipas_cache_hits_total",
			Help: "Total number of dataset cache hits",
		},
		[]string{"key"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sipas_cache_misses_total",
			Help: "Total number of dataset cache misses",
		},
		[]string{"key"},
	)

	cacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sipas_cache_invalidations_total",
			Help: "Total number of cache invalidations by data type",
		},
		[]string{"type"},
	)

	cacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sipas_cache_entries",
			Help: "Number of entries held by the in-memory cache",
		},
	)
)
