package httpadmin

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"landguard/internal/claim"
	"landguard/internal/rules"
)

// Server is the read-only ops surface: health, counters and claim listings.
// All queries go through the engine loop, so responses are consistent with
// in-flight arbitration.
type Server struct {
	engine  *rules.Engine
	log     *log.Logger
	started time.Time
}

// NewHandler builds the admin mux wrapped in CORS. An empty origin list
// allows any origin, the dev default.
func NewHandler(engine *rules.Engine, allowedOrigins []string, logger *log.Logger) http.Handler {
	s := &Server{engine: engine, log: logger, started: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/admin/v1/stats", s.handleStats)
	mux.HandleFunc("/admin/v1/claims", s.handleClaims)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.engine.CurrentStats(r.Context())
	if err != nil {
		s.logf("admin: stats: %v", err)
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	recs, err := s.engine.SnapshotClaims(r.Context())
	if err != nil {
		s.logf("admin: claims: %v", err)
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}

	world := r.URL.Query().Get("world")
	owner := r.URL.Query().Get("owner")
	filtered := make([]claim.ClaimRecord, 0, len(recs))
	for _, rec := range recs {
		if world != "" && rec.World != world {
			continue
		}
		if owner != "" && rec.Owner != owner {
			continue
		}
		filtered = append(filtered, rec)
	}
	writeJSON(w, map[string]any{
		"count":  len(filtered),
		"claims": filtered,
	})
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
