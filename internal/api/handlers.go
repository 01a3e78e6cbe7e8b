// Package api provides the HTTP surface for homepulse: sample ingestion
// and the insights endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/homepulse/homepulse/internal/insights"
	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/store"
)

// Server is the HTTP server for homepulse.
type Server struct {
	store    *store.Store
	analyzer *insights.Analyzer
	mux      *http.ServeMux
	server   *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(addr string, s *store.Store, a *insights.Analyzer) *Server {
	srv := &Server{
		store:    s,
		analyzer: a,
		mux:      http.NewServeMux(),
	}

	srv.registerRoutes()

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      SecurityHeadersMiddleware(RecoveryMiddleware(LoggingMiddleware(srv.mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	// Ingestion
	s.mux.HandleFunc("POST /api/samples", s.handleIngestSamples)
	s.mux.HandleFunc("POST /api/smart", s.handleIngestSMART)

	// Insights
	s.mux.HandleFunc("GET /api/insights/anomalies", s.handleAnomalies)
	s.mux.HandleFunc("GET /api/insights/capacity", s.handleCapacity)
	s.mux.HandleFunc("GET /api/insights/disks/{disk}/failure", s.handleDiskFailure)
	s.mux.HandleFunc("GET /api/insights/disks/{disk}/history", s.handleDiskHistory)
	s.mux.HandleFunc("GET /api/insights/trends", s.handleTrends)
	s.mux.HandleFunc("GET /api/insights/optimizations", s.handleOptimizations)

	// Health check
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// writeJSON marshals v to JSON into a buffer first, then writes it to the
// response. This ensures marshalling errors can be returned as a proper 500.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

// queryInt reads an integer query parameter, falling back to def outside
// (0, max].
func queryInt(r *http.Request, name string, def, max int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= max {
			return v
		}
	}
	return def
}

func (s *Server) handleIngestSamples(w http.ResponseWriter, r *http.Request) {
	var samples []model.Sample
	if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
		http.Error(w, "invalid sample batch: "+err.Error(), http.StatusBadRequest)
		return
	}
	now := time.Now().Unix()
	for i := range samples {
		if samples[i].Family == "" || samples[i].Entity == "" {
			http.Error(w, "sample missing family or entity", http.StatusBadRequest)
			return
		}
		if samples[i].Timestamp == 0 {
			samples[i].Timestamp = now
		}
	}

	if err := s.store.InsertSamples(samples); err != nil {
		slog.Error("ingesting samples", "count", len(samples), "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, r, map[string]any{"accepted": len(samples)})
}

func (s *Server) handleIngestSMART(w http.ResponseWriter, r *http.Request) {
	var sample model.SMARTSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		http.Error(w, "invalid SMART sample: "+err.Error(), http.StatusBadRequest)
		return
	}
	if sample.Disk == "" {
		http.Error(w, "SMART sample missing disk", http.StatusBadRequest)
		return
	}
	if sample.Timestamp == 0 {
		sample.Timestamp = time.Now().Unix()
	}

	if err := s.store.InsertSMARTSample(sample); err != nil {
		slog.Error("ingesting SMART sample", "disk", sample.Disk, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, r, map[string]any{"accepted": 1})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 168)

	anomalies, err := s.analyzer.DetectAnomalies(hours)
	if err != nil {
		slog.Error("detecting anomalies", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if anomalies == nil {
		anomalies = []model.Anomaly{}
	}
	writeJSON(w, r, anomalies)
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	var predictions []model.CapacityPrediction
	var err error

	switch resource := r.URL.Query().Get("resource"); resource {
	case "":
		predictions, err = s.analyzer.PredictAllCapacity()
	case insights.ResourceStorage, insights.ResourceMemory, insights.ResourceSwap:
		var p *model.CapacityPrediction
		p, err = s.analyzer.PredictCapacity(resource)
		if p != nil {
			predictions = append(predictions, *p)
		}
	default:
		http.Error(w, "unknown resource: "+resource, http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("predicting capacity", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if predictions == nil {
		predictions = []model.CapacityPrediction{}
	}
	writeJSON(w, r, predictions)
}

func (s *Server) handleDiskFailure(w http.ResponseWriter, r *http.Request) {
	disk := r.PathValue("disk")

	prediction, err := s.analyzer.PredictDiskFailure(disk)
	if err != nil {
		slog.Error("predicting disk failure", "disk", disk, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, prediction)
}

func (s *Server) handleDiskHistory(w http.ResponseWriter, r *http.Request) {
	disk := r.PathValue("disk")
	limit := queryInt(r, "limit", 30, 365)

	history, err := s.store.QueryDiskPredictions(disk, limit)
	if err != nil {
		slog.Error("querying disk prediction history", "disk", disk, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []model.DiskFailurePrediction{}
	}
	writeJSON(w, r, history)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30, 90)

	trends, err := s.analyzer.AnalyzeTrends(days)
	if err != nil {
		slog.Error("analyzing trends", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if trends == nil {
		trends = []model.PerformanceTrend{}
	}
	writeJSON(w, r, trends)
}

func (s *Server) handleOptimizations(w http.ResponseWriter, r *http.Request) {
	result, err := s.analyzer.OptimizeCosts()
	if err != nil {
		slog.Error("optimizing costs", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountSamples()
	if err != nil {
		writeJSON(w, r, map[string]any{
			"status":    "degraded",
			"timestamp": time.Now().Unix(),
			"error":     err.Error(),
		})
		return
	}

	status := "ok"
	if count == 0 {
		status = "no_data"
	}
	writeJSON(w, r, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"samples":   count,
	})
}
