package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mediaserve/internal/domain"
	"mediaserve/internal/download"
)

type createDownloadRequest struct {
	Magnet     string `json:"magnet"`
	Extensions string `json:"extensions"`
}

type listDownloadsResponse struct {
	Items []domain.JobSnapshot `json:"items"`
	Count int                  `json:"count"`
}

type deleteDownloadResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleDownloads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listDownloads(w, r)
	case http.MethodPost:
		s.createDownload(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (s *Server) listDownloads(w http.ResponseWriter, _ *http.Request) {
	if s.downloads == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "download manager not configured")
		return
	}
	jobs := s.downloads.List()
	writeJSON(w, http.StatusOK, listDownloadsResponse{Items: jobs, Count: len(jobs)})
}

// createDownload accepts a magnet URI plus an optional comma-separated list
// of extension overrides and answers 202 with the freshly created job.
func (s *Server) createDownload(w http.ResponseWriter, r *http.Request) {
	if s.downloads == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "download manager not configured")
		return
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	var req createDownloadRequest
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}

	job, err := s.downloads.Add(req.Magnet, parseCommaSeparated(req.Extensions))
	if err != nil {
		if errors.Is(err, download.ErrEmptyMagnet) {
			writeError(w, http.StatusBadRequest, "invalid_request", "magnet is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to start download")
		return
	}

	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) handleDownloadByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/downloads/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	if len(parts) == 2 && parts[1] == "delete" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		s.deleteDownload(w, id)
		return
	}

	http.NotFound(w, r)
}

// deleteDownload cancels a running job or forgets a finished one. The engine
// keeps no record of unknown ids, so those answer 404 with success false.
func (s *Server) deleteDownload(w http.ResponseWriter, id string) {
	if s.downloads == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "download manager not configured")
		return
	}
	if !s.downloads.Delete(id) {
		writeJSON(w, http.StatusNotFound, deleteDownloadResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, deleteDownloadResponse{Success: true})
}
