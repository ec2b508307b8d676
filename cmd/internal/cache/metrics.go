package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tero_cache_hits_total",
		Help: "Cache reads served from memory.",
	}, []string{"cache"})

	missesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tero_cache_misses_total",
		Help: "Cache reads that required a loader call.",
	}, []string{"cache"})

	evictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tero_cache_evictions_total",
		Help: "Expired entries removed lazily or by sweep.",
	}, []string{"cache"})
)
