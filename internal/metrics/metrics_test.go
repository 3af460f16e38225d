package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAreRegisteredAndObservable(t *testing.T) {
	NominatimRequests.Inc()
	if got := testutil.ToFloat64(NominatimRequests); got < 1 {
		t.Fatalf("NominatimRequests = %v, want >= 1", got)
	}

	TypesDetected.WithLabelValues("integer").Inc()
	if got := testutil.ToFloat64(TypesDetected.WithLabelValues("integer")); got < 1 {
		t.Fatalf("TypesDetected[integer] = %v, want >= 1", got)
	}

	LazoRequests.WithLabelValues("index", "ok").Inc()
	SpatialColumnsResolved.WithLabelValues("latlong").Inc()
	NominatimRequestSeconds.Observe(0.05)
	ProfileDuration.WithLabelValues("ok").Observe(0.2)
}
