package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redirect outcomes.
const (
	OutcomeRedirected = "redirected"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
)

var (
	redirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrtrack_redirects_total",
			Help: "Scan requests by terminal outcome",
		},
		[]string{"outcome"},
	)

	scansRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrtrack_scans_recorded_total",
		Help: "Scan events written to the event log",
	})

	scansDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrtrack_scans_dropped_total",
		Help: "Scan events dropped because the recorder queue was full",
	})

	scanWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrtrack_scan_write_errors_total",
		Help: "Scan events lost to event-log write failures",
	})
)

// ObserveRedirect counts one scan request by outcome.
func ObserveRedirect(outcome string) {
	redirectsTotal.WithLabelValues(outcome).Inc()
}
