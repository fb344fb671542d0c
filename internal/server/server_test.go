package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	territory "github.com/tingold/orb-territory"
	"github.com/tingold/orb-territory/internal/metrics"
)

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Collector) {
	t.Helper()
	c, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}
	s, err := New(Options{Metrics: c})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts, c
}

func postResolve(t *testing.T, url, body string) ResolveResponse {
	t.Helper()
	resp, err := http.Post(url, "text/plain", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, b)
	}

	var out struct {
		Feature json.RawMessage   `json:"feature"`
		Style   territory.Style   `json:"style"`
		Step    string            `json:"step"`
		Place   string            `json:"place"`
		Summary territory.Summary `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	f, err := territory.ParseFeature(string(out.Feature))
	if err != nil {
		t.Fatalf("ParseFeature: %v", err)
	}
	return ResolveResponse{Feature: f, Style: out.Style, Step: out.Step, Place: out.Place, Summary: out.Summary}
}

func TestResolvePlaceName(t *testing.T) {
	ts, c := newTestServer(t)

	got := postResolve(t, ts.URL+"/resolve?status=approved&selected=true", "Mumbai industrial corridor")
	if got.Step != "place" || got.Place != "mumbai" {
		t.Fatalf("step/place = %s/%s, want place/mumbai", got.Step, got.Place)
	}
	ring, ok := territory.OuterRing(got.Feature)
	if !ok {
		t.Fatal("feature has no ring")
	}
	// interchange order: longitude first
	if ring[0][0] < 72 || ring[0][0] > 74 {
		t.Errorf("first vertex %v is not [lng, lat] for Mumbai", ring[0])
	}
	if got.Style.StrokeColor != "#22c55e" {
		t.Errorf("stroke = %s, want approved colour", got.Style.StrokeColor)
	}
	if got.Summary.Vertices != 4 || got.Summary.Area <= 0 {
		t.Errorf("summary = %+v", got.Summary)
	}
	if v := testutil.ToFloat64(c.Resolutions.WithLabelValues("place")); v != 1 {
		t.Errorf("place resolutions = %v, want 1", v)
	}
}

func TestResolveFallbacks(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantStep string
	}{
		{"empty body", "", "default"},
		{"unknown place", "Unknown Villageville", "default"},
		{"json string", `"near pune station"`, "place"},
		{"geojson", `{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[77,28],[77.1,28],[77.1,28.1],[77,28]]]},"properties":{}}`, "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := postResolve(t, ts.URL+"/resolve", tt.body)
			if got.Step != tt.wantStep {
				t.Errorf("step = %s, want %s", got.Step, tt.wantStep)
			}
		})
	}
}

func TestResolveBadQuery(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/resolve?hovered=maybe", "text/plain", strings.NewReader("delhi"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStyleEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/style?status=archived&hovered=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var s territory.Style
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	want := territory.StyleFor("archived", true, false)
	if s != want {
		t.Errorf("style = %+v, want %+v", s, want)
	}
	if s.StrokeColor != territory.DefaultColor {
		t.Errorf("unknown status colour = %s", s.StrokeColor)
	}
}

func TestRegistryEndpointRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/registry.fgb")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("content type = %s", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	r, err := territory.NewReaderFromData(data)
	if err != nil {
		t.Fatalf("NewReaderFromData: %v", err)
	}
	reg, err := territory.LoadRegistry(r)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	want := territory.DefaultRegistry().Places()
	got := reg.Places()
	if len(got) != len(want) {
		t.Fatalf("places = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name {
			t.Errorf("place %d = %s, want %s", i, got[i].Name, want[i].Name)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	postResolve(t, ts.URL+"/resolve", "kolkata")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `territory_resolutions_total{step="place"} 1`) {
		t.Errorf("metrics output missing place resolution:\n%s", body)
	}
}

func TestWrongMethod(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/resolve")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestResolveBodyErrors(t *testing.T) {
	s, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		body io.Reader
		want int
	}{
		{"too large", strings.NewReader(strings.Repeat("x", maxBodyBytes+1)), http.StatusRequestEntityTooLarge},
		{"read failure", failingBody{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", tt.body))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
