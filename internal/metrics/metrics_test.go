package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RepricingRequests.WithLabelValues("preview").Inc()
	m.RepricingRequests.WithLabelValues("apply").Inc()
	m.RepricingRequests.WithLabelValues("apply").Inc()
	m.RepricingItemsUpdated.Add(3)
	m.ShipmentTransitions.WithLabelValues("ship").Inc()
	m.ObserveRequest(http.MethodGet, http.StatusOK, 10*time.Millisecond)

	if got := testutil.ToFloat64(m.RepricingRequests.WithLabelValues("apply")); got != 2 {
		t.Errorf("expected 2 apply requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.RepricingItemsUpdated); got != 3 {
		t.Errorf("expected 3 items updated, got %v", got)
	}
	if got := testutil.ToFloat64(m.ShipmentTransitions.WithLabelValues("ship")); got != 1 {
		t.Errorf("expected 1 ship transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "200")); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ShipmentTransitions.WithLabelValues("receive").Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `zaloga_shipment_transitions_total{action="receive"} 1`) {
		t.Errorf("expected transition counter in output, got:\n%s", body)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RepricingItemsUpdated.Inc()
	if got := testutil.ToFloat64(b.RepricingItemsUpdated); got != 0 {
		t.Errorf("expected separate registries, got %v", got)
	}
}
