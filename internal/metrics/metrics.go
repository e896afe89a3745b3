// Package metrics defines Prometheus metrics for vizsync.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ViewsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizsync_views_created_total",
			Help: "Views created in response to model events",
		},
		[]string{"kind"},
	)

	ViewsRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizsync_views_removed_total",
			Help: "Views removed in response to model events",
		},
		[]string{"kind"},
	)

	SelectionMirrored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizsync_selection_mirrored_total",
			Help: "Selection row values mirrored onto views",
		},
		[]string{"kind"},
	)

	EventsFlushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizsync_events_flushed_total",
			Help: "Event payloads delivered by batch flushes",
		},
		[]string{"kind"},
	)

	StyleAssociations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vizsync_style_associations",
			Help: "Stored column style associations",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ViewsCreated, ViewsRemoved, SelectionMirrored,
		EventsFlushed, StyleAssociations,
	)
}
