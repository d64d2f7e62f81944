package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"mediaserve/internal/app"
	"mediaserve/internal/domain"
)

var validBackends = map[string]bool{
	string(domain.BackendCPU):    true,
	string(domain.BackendIntel):  true,
	string(domain.BackendAMD):    true,
	string(domain.BackendNvidia): true,
}

func (s *Server) handleTranscodeSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetTranscodeSettings(w, r)
	case http.MethodPatch, http.MethodPut:
		s.handleUpdateTranscodeSettings(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetTranscodeSettings(w http.ResponseWriter, _ *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "transcode settings not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handleUpdateTranscodeSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "transcode settings not configured")
		return
	}

	var body app.TranscodeSettings
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	if body.Backend != "" && !validBackends[string(body.Backend)] {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid backend")
		return
	}

	// Merge with current values for partial updates.
	current := s.settings.Get()
	if body.Backend == "" {
		body.Backend = current.Backend
	}

	s.settings.Update(body)
	writeJSON(w, http.StatusOK, s.settings.Get())
}

type healthResponse struct {
	Status            string    `json:"status"`
	CheckedAt         time.Time `json:"checkedAt"`
	ActiveJobs        int       `json:"activeJobs"`
	Backend           string    `json:"backend,omitempty"`
	MediaDirFreeBytes int64     `json:"mediaDirFreeBytes"`
	TempDirFreeBytes  int64     `json:"tempDirFreeBytes"`
	Issues            []string  `json:"issues,omitempty"`
}

// buildHealth inspects every collaborator the server depends on. Missing or
// unavailable ones degrade the status but never fail the endpoint.
func (s *Server) buildHealth() healthResponse {
	resp := healthResponse{
		Status:    "ok",
		CheckedAt: time.Now().UTC(),
	}

	setDegraded := func(issue string) {
		if strings.TrimSpace(issue) == "" {
			return
		}
		resp.Status = "degraded"
		resp.Issues = append(resp.Issues, issue)
	}

	if s.downloads != nil {
		resp.ActiveJobs = s.downloads.Count()
		if !s.downloads.Ready() {
			setDegraded("transfer engine is not available, new downloads will fail")
		}
	} else {
		setDegraded("download manager is not configured")
	}

	if s.settings != nil {
		resp.Backend = string(s.settings.Backend())
	} else {
		setDegraded("transcode settings are not configured")
	}

	if s.transcoder == nil || !s.transcoder.Available() {
		setDegraded("ffmpeg is not available, streaming raw files only")
	}

	if free, err := app.DiskFreeBytes(s.mediaDir); err == nil {
		resp.MediaDirFreeBytes = free
	} else {
		setDegraded("cannot stat media dir")
	}
	if free, err := app.DiskFreeBytes(s.tempDir); err == nil {
		resp.TempDirFreeBytes = free
	} else {
		setDegraded("cannot stat temp dir")
	}

	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.buildHealth())
}
