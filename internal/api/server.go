// Package api exposes strategy evaluation over HTTP: backtests run as
// async jobs, live order batches are generated synchronously.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/lunar/internal/api/job"
	"github.com/newthinker/lunar/internal/backtest"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/metrics"
	"github.com/newthinker/lunar/internal/pipeline"
	"github.com/newthinker/lunar/internal/strategy"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	MetricsPath string
}

// Server hosts the evaluation API.
type Server struct {
	httpServer *http.Server
	runner     *backtest.Runner
	registry   *strategy.Registry
	jobs       *job.Store
	logger     *zap.Logger
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, runner *backtest.Runner, registry *strategy.Registry,
	jobs *job.Store, reg *metrics.Registry, logger *zap.Logger) *Server {

	s := &Server{
		runner:   runner,
		registry: registry,
		jobs:     jobs,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("POST /api/trade", s.handleTrade)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	var handler http.Handler = mux
	if reg != nil {
		metricsPath := cfg.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		mux.Handle("GET "+metricsPath, promhttp.HandlerFor(reg.Registry, promhttp.HandlerOpts{}))
		handler = metrics.HTTPMiddleware(reg)(mux)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// evalRequest is the JSON body shared by backtest and trade endpoints.
type evalRequest struct {
	Strategy string   `json:"strategy"`
	Universe []string `json:"universe"`
	Fields   []string `json:"fields"`
	Start    string   `json:"start"` // YYYY-MM-DD
	End      string   `json:"end"`
	Interval string   `json:"interval"`
}

func (r evalRequest) toDataRequest() (core.DataRequest, error) {
	var req core.DataRequest
	req.Universe = r.Universe
	req.Fields = r.Fields
	if len(req.Fields) == 0 {
		req.Fields = []string{core.FieldClose}
	}
	req.Interval = r.Interval
	if req.Interval == "" {
		req.Interval = "1d"
	}

	var err error
	if r.Start != "" {
		if req.Start, err = time.Parse("2006-01-02", r.Start); err != nil {
			return req, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if r.End != "" {
		if req.End, err = time.Parse("2006-01-02", r.End); err != nil {
			return req, fmt.Errorf("invalid end date: %w", err)
		}
	}
	return req, nil
}

// backtestSummary is the job result payload: stats plus metadata, not
// the full frames (those go to the archive, not over the wire).
type backtestSummary struct {
	RunID    string         `json:"run_id"`
	Strategy string         `json:"strategy"`
	Stats    backtest.Stats `json:"stats"`
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var body evalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	strat, err := s.registry.Get(body.Strategy)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	req, err := body.toDataRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	j := s.jobs.Create("backtest")
	go s.runBacktestJob(j.ID, strat, req)

	writeJSON(w, http.StatusAccepted, j)
}

// runBacktestJob owns one evaluation end to end; a failure is recorded
// on the job and never affects other evaluations.
func (s *Server) runBacktestJob(jobID string, strat pipeline.Strategy, req core.DataRequest) {
	s.jobs.Update(jobID, func(j *job.Job) { j.Status = job.StatusRunning })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := s.runner.Run(ctx, strat, req)
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	s.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = backtestSummary{RunID: res.RunID, Strategy: res.Strategy, Stats: res.Stats}
	})
}

func (s *Server) failJob(jobID string, err error) {
	s.logger.Warn("backtest job failed", zap.String("job_id", jobID), zap.Error(err))
	s.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusFailed
		var ce *core.Error
		if errors.As(err, &ce) {
			j.Error = ce
		} else {
			j.Error = &core.Error{Code: "INTERNAL", Message: err.Error()}
		}
	})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var body evalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	strat, err := s.registry.Get(body.Strategy)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	req, err := body.toDataRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	batch, err := s.runner.Trade(r.Context(), strat, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrInsufficientHistory) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"strategies": s.registry.Names()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
