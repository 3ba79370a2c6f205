package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/uptimekeeper/internal/httpapi/middleware"
	"github.com/hamed0406/uptimekeeper/internal/probe"
	"github.com/hamed0406/uptimekeeper/internal/status"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

type Server struct {
	Logger  *zap.Logger
	Status  *status.Store
	Checker *probe.HTTPChecker
	Health  []HealthChecker
	Metrics http.Handler
}

func NewServer(l *zap.Logger, st *status.Store, c *probe.HTTPChecker, metrics http.Handler, health ...HealthChecker) *Server {
	return &Server{Logger: l, Status: st, Checker: c, Metrics: metrics, Health: health}
}

// Router wires the status API. Reads need a public or admin key, the
// diagnostic probe needs an admin key; both are rate limited per client IP.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			pub.Use(apimw.RateLimit(pubRPM, pubBurst))
			pub.Use(apimw.RequireAny(keys))
			pub.Get("/cycles/latest", s.handleLatestCycle)
			pub.Get("/monitors", s.handleMonitors)
		})
		api.Group(func(adm chi.Router) {
			adm.Use(apimw.RateLimit(admRPM, admBurst))
			adm.Use(apimw.RequireAdmin(keys))
			adm.Post("/ping", s.handlePing)
		})
	})

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true
	for _, h := range s.Health {
		if err := h.HealthCheck(r.Context()); err != nil {
			checks[h.Name()] = err.Error()
			ready = false
			continue
		}
		checks[h.Name()] = "ok"
	}
	code := http.StatusOK
	state := "ready"
	if !ready {
		code = http.StatusServiceUnavailable
		state = "unavailable"
	}
	writeJSON(w, code, map[string]any{"status": state, "checks": checks})
}

func (s *Server) handleLatestCycle(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.Status.LatestCycle()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no cycle has completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleMonitors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status.Latest())
}

type pingPayload struct {
	URL   string `json:"url"`
	Debug bool   `json:"debug"`
}

type pingResponse struct {
	OK         bool   `json:"ok"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"statusText,omitempty"`
	Error      string `json:"error,omitempty"`

	Redirected *bool  `json:"redirected,omitempty"`
	URL        string `json:"url,omitempty"`
	Snippet    string `json:"snippet,omitempty"`
	DNS        string `json:"dns,omitempty"`
}

// handlePing runs one diagnostic probe. It never touches the ledger.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	var p pingPayload
	err := json.NewDecoder(r.Body).Decode(&p)
	p.URL = strings.TrimSpace(p.URL)
	if err != nil || !isValidHTTPURL(p.URL) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing or invalid `url` in request body"})
		return
	}

	chk := s.Checker
	if p.Debug {
		chk = chk.WithDebugSnippet()
	}
	out := chk.Check(r.Context(), p.URL)

	s.Logger.Info("diagnostic_ping",
		zap.String("url", p.URL),
		zap.Bool("up", out.Success),
		zap.Int("status", out.StatusCode),
		zap.Float64("latency_ms", out.LatencyMS),
		zap.String("dns", out.DNSClass),
	)

	switch {
	case out.TimedOut:
		writeJSON(w, http.StatusGatewayTimeout, pingResponse{Error: "Request timed out"})
		return
	case out.StatusCode == 0:
		writeJSON(w, http.StatusInternalServerError, pingResponse{Error: out.Message, DNS: out.DNSClass})
		return
	}

	resp := pingResponse{OK: out.Success, Status: out.StatusCode, StatusText: out.Status}
	if p.Debug {
		redirected := out.Redirected
		resp.Redirected = &redirected
		resp.URL = out.FinalURL
		resp.Snippet = out.Snippet
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
