package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/graph"
	"github.com/dyike/StockPilot/pkg/app"
	"github.com/dyike/StockPilot/pkg/dataflows"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	report := s.latest
	s.mu.RUnlock()

	if report == nil {
		s.writeError(w, http.StatusNotFound, "no report available")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleScan handles POST /api/scan?limit=N&allocate=bool&tickers=A,B.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	allocate := false
	if v := r.URL.Query().Get("allocate"); v != "" {
		allocate, err = strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "allocate must be a boolean")
			return
		}
	}

	report, err := s.backend.Run(r.Context(), graph.RunOptions{
		Limit:    limit,
		Tickers:  tickersParam(r),
		Allocate: allocate,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("scan failed")
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ranked, err := s.backend.Rank(r.Context(), tickersParam(r), limit)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, ranked)
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.backend.AnalyzeTicker(r.Context(), ticker)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFiling(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filing, err := s.backend.Filing(r.Context(), ticker)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	if filing == nil {
		s.writeError(w, http.StatusNotFound, "no 13F-HR filing found")
		return
	}
	s.writeJSON(w, http.StatusOK, filing)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.backend.Runs(r.Context(), limit)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

const maxConfigBody = 1 << 20

// handleUpdateConfig replaces the whole config; the runtime rebuilds the
// engine from it before the response is written.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := s.backend.UpdateConfigJSON(string(body)); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func tickersParam(r *http.Request) []string {
	raw := r.URL.Query().Get("tickers")
	if raw == "" {
		return nil
	}
	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

func statusFor(err error) int {
	switch {
	case dataflows.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNoEngine):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
