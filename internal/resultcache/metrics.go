package resultcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	tierFast    = "fast"
	tierDurable = "durable"
)

var (
	// lookups counts reads per tier by outcome (hit, miss, error).
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mutuals_result_cache_lookups_total",
		Help: "Result cache reads by tier and outcome",
	}, []string{"tier", "outcome"})

	// invalidated counts entries removed by per-user invalidation.
	invalidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mutuals_result_cache_invalidated_total",
		Help: "Result cache entries removed by friendship changes",
	}, []string{"tier"})

	// tierErrors counts failed tier operations.
	tierErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mutuals_result_cache_errors_total",
		Help: "Result cache tier failures by operation",
	}, []string{"tier", "op"})

	// expiredSwept counts durable rows removed by the periodic cleanup.
	expiredSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mutuals_result_cache_expired_swept_total",
		Help: "Expired durable result cache rows removed",
	})
)
