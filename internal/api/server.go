// Package api exposes the sanitization pipeline as a job service:
// upload a binary file, poll the job, download the surviving bits.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bitwash/adapters/excel"
	"bitwash/app"
	"bitwash/ports"
)

// PipelineFactory builds a fresh pipeline per job. Each job gets its own
// service instance so progress hooks never cross jobs.
type PipelineFactory func() *app.SanitizeService

// Server is the job API over the sanitization core.
type Server struct {
	router      *chi.Mux
	jobs        ports.JobRepository
	newPipeline PipelineFactory
	reports     *excel.ReportWriter

	dataDir        string
	maxUploadBytes int64
	chunkSize      int

	// baseCtx parents every job run; cancelling it stops in-flight
	// pipelines between rounds and chunks.
	baseCtx context.Context
	cancel  context.CancelFunc

	httpServer *http.Server
}

// NewServer wires the router
func NewServer(jobs ports.JobRepository, factory PipelineFactory, dataDir string, maxUploadBytes int64, chunkSize int) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		router:         chi.NewRouter(),
		jobs:           jobs,
		newPipeline:    factory,
		reports:        excel.NewReportWriter(),
		dataDir:        dataDir,
		maxUploadBytes: maxUploadBytes,
		chunkSize:      chunkSize,
		baseCtx:        ctx,
		cancel:         cancel,
	}

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Post("/api/jobs", s.handleUpload)
	s.router.Get("/api/jobs", s.handleList)
	s.router.Get("/api/jobs/{id}", s.handleStatus)
	s.router.Get("/api/jobs/{id}/download", s.handleDownload)
	s.router.Get("/api/jobs/{id}/report", s.handleReport)
	s.router.Get("/api/jobs/{id}/report.xlsx", s.handleReportWorkbook)

	return s
}

// Router exposes the chi mux, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves the API until the context is done, then drains.
func (s *Server) Start(port string, shutdownTimeout time.Duration, done <-chan struct{}) error {
	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("job API listening on :%s", port)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
		// Stop accepting, then stop running pipelines.
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(ctx)
		s.cancel()
		return err
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
