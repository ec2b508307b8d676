package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reserveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tero_vault_reserve_attempts_total",
		Help: "Join-code reservation attempts by result.",
	}, []string{"result"})

	reclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tero_vault_reclaimed_total",
		Help: "Join codes released by stale reclamation.",
	})

	reclaimSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tero_vault_reclaim_skipped_total",
		Help: "Stale candidates skipped because the liveness check or release failed.",
	})
)
