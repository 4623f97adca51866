package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"demusic/internal/jobs"
	"demusic/internal/logging"
	"demusic/internal/outputs"
	"demusic/internal/services"
)

// Upload size cap: the multipart parser spools anything above this to disk.
const maxUploadMemory = 32 << 20

type jobView struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Progress         int    `json:"progress"`
	OriginalFilename string `json:"original_filename"`
	ErrorMessage     string `json:"error_message,omitempty"`
	OutputFile       string `json:"output_file,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type artifactView struct {
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
	StreamURL   string `json:"stream_url"`
	DownloadURL string `json:"download_url"`
}

type errorView struct {
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed multipart request")
		return
	}
	file, header, err := r.FormFile("video_file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "no video file provided")
		return
	}
	defer file.Close()

	job, err := s.dispatcher.Submit(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, services.Message(err))
			return
		}
		s.logger.Error("upload failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	s.writeJSON(w, http.StatusSeeOther, map[string]string{
		"job_id":     job.ID,
		"status_url": "/api/jobs/" + job.ID,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job "+id+" not found")
			return
		}
		s.logger.Error("job lookup failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}

	if job.Status == jobs.StatusComplete {
		w.Header().Set("Location", "/api/videos/"+job.OutputFile)
		s.writeJSON(w, http.StatusFound, viewForJob(job))
		return
	}
	s.writeJSON(w, http.StatusOK, viewForJob(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := jobs.ParseStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		statuses = append(statuses, status)
	}

	list, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.logger.Error("job list failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "job list failed")
		return
	}

	views := make([]jobView, 0, len(list))
	for _, job := range list {
		views = append(views, viewForJob(job))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.outStore.List()
	if err != nil {
		s.logger.Error("artifact list failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "artifact list failed")
		return
	}

	views := make([]artifactView, 0, len(artifacts))
	for _, artifact := range artifacts {
		views = append(views, viewForArtifact(artifact))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"videos": views})
}

func (s *Server) handleVideoDetail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	artifact, err := s.outStore.Stat(name)
	if err != nil {
		s.respondArtifactError(w, name, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewForArtifact(artifact))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := s.outStore.Resolve(name)
	if err != nil {
		s.respondArtifactError(w, name, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := s.outStore.Resolve(name)
	if err != nil {
		s.respondArtifactError(w, name, err)
		return
	}
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if err := s.outStore.Delete(name); err != nil {
		s.respondArtifactError(w, name, err)
		return
	}
	s.logger.Info("artifact deleted", logging.String("filename", name))
	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeError(w, http.StatusServiceUnavailable, "status unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, s.status.Status(r.Context()))
}

func (s *Server) respondArtifactError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, services.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "video "+name+" not found")
		return
	}
	s.logger.Error("artifact access failed", logging.String("filename", name), logging.Error(err))
	s.writeError(w, http.StatusInternalServerError, "artifact access failed")
}

func viewForJob(job *jobs.Job) jobView {
	return jobView{
		ID:               job.ID,
		Status:           string(job.Status),
		Progress:         job.Progress,
		OriginalFilename: job.OriginalFilename,
		ErrorMessage:     job.ErrorMessage,
		OutputFile:       job.OutputFile,
		CreatedAt:        job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        job.UpdatedAt.Format(time.RFC3339),
	}
}

func viewForArtifact(artifact outputs.Artifact) artifactView {
	return artifactView{
		Filename:    artifact.Filename,
		DisplayName: artifact.DisplayName,
		SizeBytes:   artifact.SizeBytes,
		CreatedAt:   artifact.CreatedAt.Format(time.RFC3339),
		StreamURL:   "/api/videos/" + artifact.Filename + "/stream",
		DownloadURL: "/api/videos/" + artifact.Filename + "/download",
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorView{Error: message})
}
