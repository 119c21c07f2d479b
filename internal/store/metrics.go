package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umessenger_store_operations_total",
		Help: "Total number of store operations",
	}, []string{"collection", "operation"})

	opFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umessenger_store_operation_failures_total",
		Help: "Total number of failed store operations",
	}, []string{"collection", "operation"})
)
