package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/hashfsm"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxPayloadSize bounds Definition payloads and request bodies.
const maxPayloadSize = 1 << 20

// Service defines the operator commands served over HTTP.
// It is satisfied by *hashfsm.Module.
type Service interface {
	Create(ctx context.Context, payload []byte) (string, error)
	Info(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	Allowed(ctx context.Context, fsm, key, event string) (bool, error)
	Trigger(ctx context.Context, fsm, key, event string) (bool, error)
	State(ctx context.Context, fsm, key string) (string, bool, error)
	Events(ctx context.Context, fsm, key string) ([]string, error)
	List(ctx context.Context) (map[string]string, error)
}

var _ Service = (*hashfsm.Module)(nil)

// Server serves the operator API.
type Server struct {
	Service  Service
	Streams  *StreamManager
	Health   func(context.Context) error
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams enables GET /watch, fed by the given StreamManager.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithHealthcheck makes GET /health probe the host.
func WithHealthcheck(check func(context.Context) error) Option {
	return func(s *Server) {
		s.Health = check
	}
}

// WithGatherer sets the registry exposed on /metrics (default prometheus.DefaultGatherer).
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates a new HTTP handler for the service.
func NewHandler(svc Service, opts ...Option) http.Handler {
	server := &Server{
		Service:  svc,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	r.Handle("/metrics", promhttp.HandlerFor(server.Gatherer, promhttp.HandlerOpts{}))

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/prefixes", server.ListPrefixes)
	r.Get("/watch", server.Watch)

	r.Route("/fsm", func(r chi.Router) {
		r.Post("/", server.CreateDefinition)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", server.GetDefinition)
			r.Delete("/", server.DeleteDefinition)
			r.Get("/allowed", server.Allowed)
			r.Post("/trigger", server.Trigger)
			r.Get("/state", server.GetState)
			r.Get("/events", server.ListEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>hashfsm API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// CreateDefinition handles POST /fsm. The body is a YAML or JSON Definition.
func (s *Server) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		s.badBody(w, "Create", err)
		return
	}

	name, err := s.Service.Create(r.Context(), payload)
	if err != nil {
		s.fail(w, "Create", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

// GetDefinition handles GET /fsm/{name}.
func (s *Server) GetDefinition(w http.ResponseWriter, r *http.Request) {
	data, err := s.Service.Info(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, "Info", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// DeleteDefinition handles DELETE /fsm/{name}.
func (s *Server) DeleteDefinition(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.fail(w, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Allowed handles GET /fsm/{name}/allowed?key=&event=.
func (s *Server) Allowed(w http.ResponseWriter, r *http.Request) {
	key, event := r.URL.Query().Get("key"), r.URL.Query().Get("event")
	if key == "" || event == "" {
		http.Error(w, "key and event are required", http.StatusBadRequest)
		return
	}
	ok, err := s.Service.Allowed(r.Context(), chi.URLParam(r, "name"), key, event)
	if err != nil {
		s.fail(w, "Allowed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"allowed": ok})
}

type triggerRequest struct {
	Key   string `json:"key"`
	Event string `json:"event"`
}

// Trigger handles POST /fsm/{name}/trigger.
func (s *Server) Trigger(w http.ResponseWriter, r *http.Request) {
	var body triggerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadSize)).Decode(&body); err != nil {
		s.badBody(w, "Trigger", err)
		return
	}
	if body.Key == "" || body.Event == "" {
		http.Error(w, "key and event are required", http.StatusBadRequest)
		return
	}

	fired, err := s.Service.Trigger(r.Context(), chi.URLParam(r, "name"), body.Key, body.Event)
	if err != nil {
		s.fail(w, "Trigger", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"fired": fired})
}

type stateResponse struct {
	Key         string `json:"key"`
	State       string `json:"state,omitempty"`
	Initialized bool   `json:"initialized"`
}

// GetState handles GET /fsm/{name}/state?key=.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	state, ok, err := s.Service.State(r.Context(), chi.URLParam(r, "name"), key)
	if err != nil {
		s.fail(w, "State", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateResponse{Key: key, State: state, Initialized: ok})
}

// ListEvents handles GET /fsm/{name}/events?key=.
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	events, err := s.Service.Events(r.Context(), chi.URLParam(r, "name"), key)
	if err != nil {
		s.fail(w, "Events", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"events": events})
}

// ListPrefixes handles GET /prefixes.
func (s *Server) ListPrefixes(w http.ResponseWriter, r *http.Request) {
	bindings, err := s.Service.List(r.Context())
	if err != nil {
		s.fail(w, "List", err)
		return
	}
	s.writeJSON(w, http.StatusOK, bindings)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		if err := s.Health(r.Context()); err != nil {
			s.Logger.Warn("Healthcheck failed", "error", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "hashfsm-http",
		"version":     strings.TrimSpace(hashfsm.Version),
		"api_version": apiVersion,
	})
}

// Watch handles GET /watch (SSE), streaming host write notifications.
func (s *Server) Watch(w http.ResponseWriter, r *http.Request) {
	if s.Streams == nil {
		http.Error(w, "Watching is not enabled", http.StatusNotImplemented)
		return
	}
	prefix, ok := watchPrefix(r.URL.Query().Get("prefix"))
	if !ok {
		http.Error(w, fmt.Sprintf("prefix must contain a single trailing %q", domain.Separator), http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("Watch: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.Logger.Info("SSE: Subscribing to notifications", "prefix", prefix)

	ch, cancel := s.Streams.Subscribe(prefix)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// watchPrefix normalizes the /watch filter to the form notifications are
// bucketed under: "job" and "job:" both select "job:". ok is false when the
// separator appears anywhere but at the end.
func watchPrefix(q string) (string, bool) {
	if q == "" {
		return "", true
	}
	i := strings.IndexByte(q, domain.Separator)
	switch {
	case i < 0:
		return q + string(domain.Separator), true
	case i == len(q)-1:
		return q, true
	}
	return "", false
}

// badBody answers an unreadable request body, with 413 when it exceeded
// maxPayloadSize.
func (s *Server) badBody(w http.ResponseWriter, op string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, fmt.Sprintf("%s error: request body exceeds %d bytes", op, tooLarge.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "Invalid request body", http.StatusBadRequest)
	s.Logger.Warn(op+": Invalid request body", "error", err)
}

// fail maps domain errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrDecode):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPrefixTaken):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStore):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "error", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}
