// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only aggregate data).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/antpheromones/internal/engine"
	"github.com/talgya/antpheromones/internal/persistence"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // optional; history endpoints need it
	RunID    string          // run the history endpoints default to
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Active websocket connection count (atomic).
	wsConns int32
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	historyLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/ants", s.handleAnts)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/runs", RateLimitMiddleware(historyLimiter, s.handleRuns))
	mux.HandleFunc("/api/v1/stats/history", RateLimitMiddleware(historyLimiter, s.handleStatsHistory))

	// Live per-tick stats.
	mux.HandleFunc("/api/v1/ws", s.handleWS)

	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/params", s.adminOnly(s.handleParams))
	mux.HandleFunc("/api/v1/resample", s.adminOnly(s.handleResample))

	return corsMiddleware(mux)
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "history", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed origins. CORS_ORIGINS holds a
// comma-separated list; localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := s.Sim.CurrentParams()
	st := s.Sim.Snapshot()
	status := map[string]any{
		"name":               "antsim",
		"run_id":             s.RunID,
		"tick":               st.Tick,
		"population":         st.Population,
		"target_population":  p.NumAnts,
		"world":              fmt.Sprintf("%dx%d", p.SizeX, p.SizeY),
		"source":             s.Sim.Source,
		"activation_order":   p.ActivationOrder.String(),
		"random_move_method": p.MoveMethod.String(),
		"diffusion_k":        p.DiffusionK,
		"evap_rate":          p.EvapRate,
		"exog_rate":          p.ExogRate,
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot())
}

func (s *Server) handleAnts(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 10000 {
			limit = n
		}
	}

	roster := s.Sim.AntsByDistance()
	if len(roster) > limit {
		roster = roster[:limit]
	}
	writeJSON(w, roster)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.RecentEvents(limit)
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.ListRuns(50)
	if err != nil {
		slog.Error("list runs failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	runID := s.RunID
	fromTick := uint64(0)
	toTick := uint64(0)
	limit := 100

	q := r.URL.Query()
	if v := q.Get("run"); v != "" {
		runID = v
	}
	if f := q.Get("from"); f != "" {
		if v, err := strconv.ParseUint(f, 10, 63); err == nil {
			fromTick = v
		}
	}
	if t := q.Get("to"); t != "" {
		if v, err := strconv.ParseUint(t, 10, 63); err == nil {
			toTick = v
		}
	}
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 5000 {
			limit = v
		}
	}

	rows, err := s.DB.LoadStatsHistory(runID, fromTick, toTick, limit)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		writeJSON(w, []engine.Stats{})
		return
	}
	if rows == nil {
		rows = []engine.Stats{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "no engine attached", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// paramsRequest lists the settings adjustable mid-run. Absent fields are left alone.
type paramsRequest struct {
	ActivationOrder  *json.RawMessage `json:"activation_order"`
	RandomMoveMethod *json.RawMessage `json:"random_move_method"`
	DiffusionK       *float64         `json:"diffusion_k"`
	EvapRate         *float64         `json:"evap_rate"`
	ExogRate         *float64         `json:"exog_rate"`
}

// choiceString accepts a JSON string or number.
func choiceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req paramsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var errs []string
		apply := func(err error) {
			if err != nil {
				errs = append(errs, err.Error())
			}
		}
		if req.ActivationOrder != nil {
			apply(s.Sim.SetActivationOrder(choiceString(*req.ActivationOrder)))
		}
		if req.RandomMoveMethod != nil {
			apply(s.Sim.SetMoveMethod(choiceString(*req.RandomMoveMethod)))
		}
		if req.DiffusionK != nil {
			apply(s.Sim.SetDiffusionK(*req.DiffusionK))
		}
		if req.EvapRate != nil {
			apply(s.Sim.SetEvapRate(*req.EvapRate))
		}
		if req.ExogRate != nil {
			apply(s.Sim.SetExogRate(*req.ExogRate))
		}
		if len(errs) > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"errors": errs, "params": paramsView(s.Sim.CurrentParams())})
			return
		}
	}

	writeJSON(w, paramsView(s.Sim.CurrentParams()))
}

func paramsView(p engine.Params) map[string]any {
	return map[string]any{
		"activation_order":   p.ActivationOrder.String(),
		"random_move_method": p.MoveMethod.String(),
		"diffusion_k":        p.DiffusionK,
		"evap_rate":          p.EvapRate,
		"exog_rate":          p.ExogRate,
	}
}

func (s *Server) handleResample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Sim.ResampleProbRandMove()
	writeJSON(w, map[string]any{
		"tick":    s.Sim.CurrentTick(),
		"message": "prob_rand_move resampled",
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
