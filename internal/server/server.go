// Package server exposes the service over HTTP: liveness, counters, and the
// capture bridge handoff endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/voguh/unichat-sub000/internal/logging"
	"github.com/voguh/unichat-sub000/internal/session"
)

// MaxIngestBytes bounds one /ingest request body.
const MaxIngestBytes = 8 << 20

// Backend is what the server drives.
type Backend interface {
	Ingest(r session.Record) error
	Stats() session.Stats
}

// IngestResult is the /ingest response body.
type IngestResult struct {
	Accepted int      `json:"accepted"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// maxReportedErrors caps IngestResult.Errors.
const maxReportedErrors = 20

// Server provides the HTTP endpoints
type Server struct {
	server  *http.Server
	backend Backend
	logger  *zap.SugaredLogger
}

// New creates a new server
func New(addr string, backend Backend, logger *zap.SugaredLogger) *Server {
	s := &Server{backend: backend, logger: logging.OrNop(logger)}
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /ingest", s.handleIngest)

	return mux
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Stats())
}

// handleIngest accepts one record or a stream of records (JSON lines or
// concatenated objects). Records that fail to ingest are counted and do not
// stop the rest of the body.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxIngestBytes))

	var res IngestResult
	for {
		var rec session.Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Warnf("Rejecting ingest body: %v", err)
			res.Errors = append(res.Errors, fmt.Sprintf("decode record %d: %v", res.Accepted+res.Failed+1, err))
			writeJSON(w, http.StatusBadRequest, res)
			return
		}

		if err := s.backend.Ingest(rec); err != nil {
			res.Failed++
			if len(res.Errors) < maxReportedErrors {
				res.Errors = append(res.Errors, err.Error())
			}
			continue
		}
		res.Accepted++
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.server.Shutdown(ctx)
}
