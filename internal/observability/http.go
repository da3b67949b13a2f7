package observability

import (
	"encoding/json"
	"net/http"
	"time"

	logs "github.com/danmuck/smplog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionStatus is the /session view of the local peer.
type SessionStatus struct {
	Role  string   `json:"role"`
	Addr  string   `json:"addr,omitempty"`
	Code  bool     `json:"code_set"`
	Peers []string `json:"peers"`
}

// StatusFunc returns the latest published session status. It is called from
// HTTP goroutines and must not touch session state directly.
type StatusFunc func() SessionStatus

// NewRouter builds the status endpoint: /healthz, /metrics and /session.
func NewRouter(startedAt time.Time, status StatusFunc) http.Handler {
	RegisterMetrics()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(*logs.Zerolog()))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/session", func(w http.ResponseWriter, _ *http.Request) {
		st := SessionStatus{Role: "none", Peers: []string{}}
		if status != nil {
			st = status()
			if st.Peers == nil {
				st.Peers = []string{}
			}
		}
		writeJSON(w, http.StatusOK, st)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
