package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bitwash/domain/core"
	"bitwash/domain/job"
)

// handleUpload accepts a multipart upload, records a pending job, and
// kicks off background processing.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	id := core.NewID()
	jobDir := filepath.Join(s.dataDir, "jobs", id.String())
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		log.Printf("failed to create job dir: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	inputPath := filepath.Join(jobDir, "input.dat")
	outputPath := filepath.Join(jobDir, "output.bit")

	dst, err := os.Create(inputPath)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	written, err := io.Copy(dst, file)
	dst.Close()
	if err != nil {
		os.RemoveAll(jobDir)
		respondError(w, http.StatusBadRequest, "upload truncated")
		return
	}
	if written == 0 {
		os.RemoveAll(jobDir)
		respondError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	j := job.New(header.Filename, inputPath, outputPath, s.chunkSize)
	j.ID = core.JobID(id)

	if err := s.jobs.Create(r.Context(), j); err != nil {
		log.Printf("failed to create job record: %v", err)
		os.RemoveAll(jobDir)
		respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	go s.processJob(j)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": j.ID.String(),
		"status": string(j.Status),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	jobs, err := s.jobs.List(r.Context(), limit, offset)
	if err != nil {
		log.Printf("failed to list jobs: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	respondJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, j)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	if j.Status != job.StatusCompleted {
		respondError(w, http.StatusConflict, "job not completed (status="+string(j.Status)+")")
		return
	}
	if _, err := os.Stat(j.OutputPath); err != nil {
		respondError(w, http.StatusNotFound, "output artifact missing")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="output.bit"`)
	http.ServeFile(w, r, j.OutputPath)
}

func (s *Server) handleReportWorkbook(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	path := filepath.Join(filepath.Dir(j.OutputPath), "report.xlsx")
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "report not available")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="report.xlsx"`)
	http.ServeFile(w, r, path)
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	id, err := core.ParseJobID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return nil, false
	}

	j, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			respondError(w, http.StatusNotFound, "job not found")
			return nil, false
		}
		log.Printf("failed to load job %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load job")
		return nil, false
	}
	return j, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
