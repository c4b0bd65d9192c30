package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"driftwatch/internal/audit"
	"driftwatch/internal/report"
	"driftwatch/internal/snapshot"
)

type Server struct {
	r       *chi.Mux
	store   snapshot.Store
	auditor *audit.Auditor
	window  time.Duration
	keep    int
}

// NewServer builds the HTTP surface. keep bounds how many snapshots are
// retained after each ingestion; <= 0 disables pruning.
func NewServer(store snapshot.Store, auditor *audit.Auditor, window time.Duration, keep int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	s := &Server{r: r, store: store, auditor: auditor, window: window, keep: keep}

	r.Get("/health", s.health)
	r.Post("/api/snapshots", s.ingestSnapshot)
	r.Get("/api/snapshots", s.listSnapshots)
	r.Get("/api/snapshots/{id}", s.getSnapshot)
	r.Get("/api/audit", s.auditJSON)
	r.Get("/api/audit/report", s.auditText)
	r.Get("/api/audit/diff", s.auditDiff)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ingestResp struct {
	ID string `json:"id"`
}

func (s *Server) ingestSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap snapshot.ClusterSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if len(snap.Jobs) == 0 && len(snap.Runs) == 0 {
		http.Error(w, "empty snapshot", 400)
		return
	}
	id, err := s.store.Save(r.Context(), snap)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if s.keep > 0 {
		if n, err := s.store.Prune(r.Context(), s.keep); err != nil {
			log.Warn().Err(err).Msg("prune snapshots")
		} else if n > 0 {
			log.Debug().Int("pruned", n).Int("keep", s.keep).Msg("pruned old snapshots")
		}
	}
	writeJSON(w, http.StatusCreated, ingestResp{ID: id})
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			http.Error(w, "invalid limit parameter", 400)
			return
		}
		limit = n
	}
	stored, err := s.store.Latest(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	out := make([]map[string]any, 0, len(stored))
	for _, st := range stored {
		out = append(out, map[string]any{
			"id":          st.ID,
			"captured_at": st.CapturedAt.Format(time.RFC3339),
			"schedules":   len(st.Snapshot.Jobs),
			"runs":        len(st.Snapshot.Runs),
		})
	}
	writeJSON(w, 200, out)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.store.Get(r.Context(), id)
	if errors.Is(err, snapshot.ErrNotFound) {
		http.Error(w, "not found", 404)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 200, st.Snapshot)
}

// runLatest audits the most recent snapshot and diffs it against the one
// before it, when present.
func (s *Server) runLatest(r *http.Request) (audit.Result, *snapshot.Changes, error) {
	window := s.window
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return audit.Result{}, nil, errBadWindow
		}
		window = d
	}

	stored, err := s.store.Latest(r.Context(), 2)
	if err != nil {
		return audit.Result{}, nil, err
	}
	if len(stored) == 0 {
		return audit.Result{}, nil, snapshot.ErrNotFound
	}

	current := stored[0]
	end := current.CapturedAt
	res := s.auditor.Audit(current.Snapshot, end.Add(-window), end, time.Now().UTC())

	var changes *snapshot.Changes
	if len(stored) > 1 {
		ch := snapshot.Diff(current.Snapshot, stored[1].Snapshot)
		changes = &ch
	}
	return res, changes, nil
}

var errBadWindow = errors.New("invalid window parameter")

func (s *Server) auditJSON(w http.ResponseWriter, r *http.Request) {
	res, changes, err := s.runLatest(r)
	if err != nil {
		auditError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"result":  res,
		"changes": changes,
	})
}

func (s *Server) auditText(w http.ResponseWriter, r *http.Request) {
	res, changes, err := s.runLatest(r)
	if err != nil {
		auditError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		w.Write([]byte(report.HTML(res, changes)))
		return
	}
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(200)
	w.Write([]byte(report.Text(res, changes)))
}

func (s *Server) auditDiff(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.Latest(r.Context(), 2)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if len(stored) < 2 {
		http.Error(w, "need two snapshots", 404)
		return
	}
	writeJSON(w, 200, snapshot.Diff(stored[0].Snapshot, stored[1].Snapshot))
}

func auditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		http.Error(w, "no snapshots stored", 404)
	case errors.Is(err, errBadWindow):
		http.Error(w, err.Error(), 400)
	default:
		http.Error(w, err.Error(), 500)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
