package rbf

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	factorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rbf_factorizations_total",
		Help: "Kernel matrix factorizations by result",
	}, []string{"result"})

	computeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rbf_compute_duration_seconds",
		Help:    "Assembly and factorization time of Compute",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	interpolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rbf_interpolated_fields_total",
		Help: "Field components transferred through a cached factorization",
	})
)
