package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	territory "github.com/tingold/orb-territory"
)

func TestCollectorCountsResolutions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := territory.NewResolver(territory.WithObserver(c))
	r.Resolve("Mumbai industrial corridor")
	r.Resolve("Unknown Villageville")
	r.Resolve(nil)

	if got := testutil.ToFloat64(c.Resolutions.WithLabelValues("place")); got != 1 {
		t.Fatalf("place resolutions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Resolutions.WithLabelValues("default")); got != 2 {
		t.Fatalf("default resolutions = %v, want 2", got)
	}
}

func TestCollectorCountsDrawEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e := territory.NewManualEngine(territory.EngineOptions{Observer: c})
	e.Start()
	e.AddPoint(orb.Point{28.6, 77.2})
	e.AddPoint(orb.Point{28.7, 77.2})
	e.AddPoint(orb.Point{28.7, 77.3})

	if got := testutil.ToFloat64(c.DrawEvents.WithLabelValues(territory.StrategyManual, territory.DrawStart)); got != 1 {
		t.Fatalf("start events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.DrawEvents.WithLabelValues(territory.StrategyManual, territory.DrawCommit)); got != 1 {
		t.Fatalf("commit events = %v, want 1", got)
	}
}

func TestNewToleratesReregistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := New(reg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}

	first.ResolutionObserved(territory.StepJSON)
	if got := testutil.ToFloat64(second.Resolutions.WithLabelValues("json")); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h := c.Middleware("/resolve", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/resolve", nil))

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("/resolve", "418")); got != 1 {
		t.Fatalf("requests = %v, want 1", got)
	}

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{"territory_http_requests_total", "territory_http_request_duration_seconds"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ResolutionObserved(territory.StepDefault)
	c.DrawEventObserved(territory.StrategyGuided, territory.DrawCommit)

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	if got := c.Middleware("/x", next); got == nil {
		t.Fatal("Middleware on nil collector returned nil")
	}
}
