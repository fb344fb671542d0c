// Package server exposes territory resolution over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/paulmach/orb/geojson"

	territory "github.com/tingold/orb-territory"
	"github.com/tingold/orb-territory/internal/logging"
	"github.com/tingold/orb-territory/internal/metrics"
)

// maxBodyBytes caps a stored location value.
const maxBodyBytes = 1 << 20

// Options configures a Server. A nil Resolver means a resolver over Registry.
type Options struct {
	Registry *territory.Registry
	Resolver *territory.Resolver
	Metrics  *metrics.Collector
	Logger   logging.Logger
}

// Server serves resolved territories, status styles and the place registry.
type Server struct {
	resolver    *territory.Resolver
	registryFGB []byte
	metrics     *metrics.Collector
	log         logging.Logger
	mux         *http.ServeMux
}

// ResolveResponse is the body returned by POST /resolve. The feature is in
// interchange order.
type ResolveResponse struct {
	Feature *geojson.Feature  `json:"feature"`
	Style   territory.Style   `json:"style"`
	Step    string            `json:"step"`
	Place   string            `json:"place,omitempty"`
	Summary territory.Summary `json:"summary"`
}

// New builds the server. The registry is encoded to FlatGeobuf once here.
func New(opts Options) (*Server, error) {
	reg := opts.Registry
	if reg == nil {
		reg = territory.DefaultRegistry()
	}

	s := &Server{
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
		log:      logging.OrNoop(opts.Logger).With(logging.Component("server")),
		mux:      http.NewServeMux(),
	}
	if s.resolver == nil {
		var observer territory.Observer
		if opts.Metrics != nil {
			observer = opts.Metrics
		}
		s.resolver = territory.NewResolver(
			territory.WithRegistry(reg),
			territory.WithLogger(opts.Logger),
			territory.WithObserver(observer),
		)
	}

	var buf bytes.Buffer
	fgbOpts := territory.DefaultOptions()
	fgbOpts.Name = "places"
	fgbOpts.Description = "Place registry in lookup order"
	if err := territory.WritePlaces(&buf, reg, fgbOpts); err != nil {
		return nil, fmt.Errorf("server: encode registry: %w", err)
	}
	s.registryFGB = buf.Bytes()

	s.handle("POST /resolve", "/resolve", http.HandlerFunc(s.handleResolve))
	s.handle("GET /style", "/style", http.HandlerFunc(s.handleStyle))
	s.handle("GET /registry.fgb", "/registry.fgb", http.HandlerFunc(s.handleRegistry))
	s.handle("GET /healthz", "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handle(pattern, route string, h http.Handler) {
	s.mux.Handle(pattern, s.metrics.Middleware(route, h))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	status, hovered, selected, err := styleParams(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		s.writeError(w, r, code, err)
		return
	}

	res := s.resolver.ResolveDetailed(string(body))
	name := res.Place
	if name == "" {
		name = territory.DefaultFeatureName
	}
	ring := territory.ToInterchange(res.Ring, territory.ViewportOrder)
	feature, err := territory.NewFeature(ring, name)
	if err != nil {
		// resolver output is always a valid ring
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, r, ResolveResponse{
		Feature: feature,
		Style:   territory.StyleFor(status, hovered, selected),
		Step:    res.Step.String(),
		Place:   res.Place,
		Summary: territory.Summarize(ring),
	})
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	status, hovered, selected, err := styleParams(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, r, territory.StyleFor(status, hovered, selected))
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := w.Write(s.registryFGB); err != nil {
		s.log.Warn(r.Context(), "registry write failed", logging.Err(err))
	}
}

// styleParams reads status, hovered and selected from the query string.
func styleParams(r *http.Request) (territory.Status, bool, bool, error) {
	q := r.URL.Query()
	hovered, err := parseFlag(q.Get("hovered"))
	if err != nil {
		return "", false, false, fmt.Errorf("hovered: %w", err)
	}
	selected, err := parseFlag(q.Get("selected"))
	if err != nil {
		return "", false, false, fmt.Errorf("selected: %w", err)
	}
	return territory.Status(q.Get("status")), hovered, selected, nil
}

func parseFlag(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New("want a boolean")
	}
	return b, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn(r.Context(), "response encode failed", logging.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	s.log.Info(r.Context(), "request rejected",
		logging.String("path", r.URL.Path),
		logging.Int("code", code),
		logging.Err(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
