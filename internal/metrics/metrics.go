// Package metrics provides Prometheus metrics for the bundle app.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MergePublishTotal counts merge-configurations metafield writes by status
	MergePublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bundleapp",
			Subsystem: "merge",
			Name:      "publish_total",
			Help:      "Total number of merge configuration publishes by status",
		},
		[]string{"status"},
	)

	// BulkDeleteItemsTotal counts per-item bulk delete outcomes
	BulkDeleteItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bundleapp",
			Subsystem: "bulk_delete",
			Name:      "items_total",
			Help:      "Total number of bulk delete items by outcome",
		},
		[]string{"status"},
	)

	// HTTPRequestDuration tracks inbound request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bundleapp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status_code"},
	)

	// ProductCacheLookups counts product lookup cache hits and misses
	ProductCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bundleapp",
			Subsystem: "product_cache",
			Name:      "lookups_total",
			Help:      "Product lookup cache results",
		},
		[]string{"result"},
	)
)
