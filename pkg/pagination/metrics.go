package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_pages_fetched_total",
		Help: "Total discovery pages fetched by traversal mode",
	}, []string{"mode"})

	traversalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_traversals_total",
		Help: "Total discovery traversals by mode and final status",
	}, []string{"mode", "status"})
)
