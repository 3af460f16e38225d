// Package metrics holds the process-wide Prometheus collectors updated
// during profiling. All counters/histograms are registered against the
// default registry at package init and updated atomically by their own
// client_golang implementation; the profiler never tears them down.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ProfileDuration times a full Profile() call, labeled by outcome.
	ProfileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "profile_duration_seconds",
			Help: "Time to profile a dataset.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"outcome"},
	)

	// TypesDetected counts columns assigned each structural type.
	TypesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_types_detected_total",
			Help: "Number of columns assigned each structural type.",
		},
		[]string{"structural_type"},
	)

	// SpatialColumnsResolved counts columns that yielded spatial coverage,
	// labeled by the source (latlong, wkt, address, admin).
	SpatialColumnsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_spatial_columns_resolved_total",
			Help: "Number of columns that produced spatial coverage, by source.",
		},
		[]string{"source"},
	)

	// LazoRequests counts calls made to the sketch service, labeled by
	// mode (index/sketch) and outcome (ok/error).
	LazoRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_lazo_requests_total",
			Help: "Requests made to the sketch (Lazo) service.",
		},
		[]string{"mode", "outcome"},
	)

	// NominatimRequests counts outbound geocoder HTTP requests.
	NominatimRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_nominatim_reqs_total",
			Help: "Queries sent to the geocoder.",
		},
	)

	// NominatimRequestSeconds times geocoder requests whose response is
	// not retried (any status other than 502/503/504).
	NominatimRequestSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "profile_nominatim_req_seconds",
			Help:    "Time for the geocoder to answer a query.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		ProfileDuration,
		TypesDetected,
		SpatialColumnsResolved,
		LazoRequests,
		NominatimRequests,
		NominatimRequestSeconds,
	)
}
