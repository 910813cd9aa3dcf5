// Package server exposes the read API over persisted matches and an
// asynchronous trigger for matching runs.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/export"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/match"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/monitoring"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/store"
)

// Handler serves the HTTP API.
type Handler struct {
	store     store.Store
	runner    *match.Runner
	collector *monitoring.Collector

	// baseCtx outlives individual requests so async batches survive the
	// triggering request; it is cancelled on server shutdown.
	baseCtx context.Context

	matching atomic.Bool
}

// NewHandler wires the API handler. baseCtx bounds background matching runs.
func NewHandler(baseCtx context.Context, st store.Store, runner *match.Runner) *Handler {
	return &Handler{
		store:     st,
		runner:    runner,
		collector: monitoring.NewCollector(st),
		baseCtx:   baseCtx,
	}
}

// NewRouter builds the chi router for the API.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/incentives", h.listIncentives)
		r.Get("/incentives/{id}", h.getIncentive)
		r.Get("/incentives/{id}/matches", h.getMatches)
		r.Post("/match", h.triggerMatch)
		r.Get("/stats", h.getStats)
		r.Get("/export.csv", h.exportCSV)
	})

	return r
}

func (h *Handler) listIncentives(w http.ResponseWriter, r *http.Request) {
	incentives, err := h.store.ListIncentives(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, incentives)
}

func (h *Handler) getIncentive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inc, err := h.store.GetIncentive(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (h *Handler) getMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	matches, err := h.store.MatchesForIncentive(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// triggerMatch starts a matching run in the background and returns 202.
// Only one run at a time; a second trigger while one is in flight gets 409.
func (h *Handler) triggerMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IncentiveID    *int64  `json:"incentive_id"`
		Force          bool    `json:"force"`
		BudgetUSD      float64 `json:"budget"`
		BatchBudgetUSD float64 `json:"batch_budget"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "server: decode match request"))
			return
		}
	}

	if !h.matching.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a matching run is already in progress"})
		return
	}

	opts := match.Options{
		ForceRefresh:       req.Force,
		IncentiveBudgetUSD: req.BudgetUSD,
		BatchBudgetUSD:     req.BatchBudgetUSD,
	}
	go func() {
		defer h.matching.Store(false)
		if req.IncentiveID != nil {
			run, err := h.runner.MatchIncentive(h.baseCtx, *req.IncentiveID, opts)
			if err != nil {
				zap.L().Error("server: incentive match failed",
					zap.Int64("incentive_id", *req.IncentiveID), zap.Error(err))
				return
			}
			zap.L().Info("server: incentive match finished",
				zap.Int64("incentive_id", run.IncentiveID), zap.String("status", string(run.Status)))
			return
		}
		report, err := h.runner.MatchAll(h.baseCtx, opts)
		if err != nil {
			zap.L().Error("server: batch match failed", zap.Error(err))
			return
		}
		zap.L().Info("server: batch match finished",
			zap.String("run_id", report.RunID),
			zap.Int("persisted", report.Persisted),
			zap.Int("failed", report.Failed))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.collector.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="matches.csv"`)
	if err := export.Write(r.Context(), h.store, w, export.FormatCSV); err != nil {
		// Headers are already out; log and abort the body.
		zap.L().Error("server: csv export failed", zap.Error(err))
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, eris.New("server: id must be an integer"))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
