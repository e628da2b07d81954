// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DraftUploads counts draft upload attempts by result (uploaded, failed).
	DraftUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaid_draft_uploads_total",
		Help: "Draft upload attempts by result",
	}, []string{"result"})

	// DraftsSaved counts families captured into the local draft queue.
	DraftsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaid_drafts_saved_total",
		Help: "Families saved to the local draft queue",
	})

	// ImportedFamilies counts bulk import outcomes per family by result.
	ImportedFamilies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaid_import_families_total",
		Help: "Families processed by bulk import by result",
	}, []string{"result"})

	// ImportsAborted counts imports stopped by unresolved delegates.
	ImportsAborted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaid_imports_aborted_total",
		Help: "Bulk imports aborted before any write",
	})

	// ConnectivityTransitions counts monitor state flips by new state.
	ConnectivityTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaid_connectivity_transitions_total",
		Help: "Connectivity state changes by new state",
	}, []string{"state"})

	// Online is 1 while the remote store is reachable.
	Online = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campaid_remote_online",
		Help: "1 when the remote store is reachable",
	})

	// ReportColumns counts generated report columns by logic source (model, heuristic).
	ReportColumns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaid_report_columns_total",
		Help: "Report columns generated by logic source",
	}, []string{"source"})
)
