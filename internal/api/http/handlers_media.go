package apihttp

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"mediaserve/internal/domain"
)

// uploadMemoryLimit is the in-memory threshold for multipart parsing; larger
// parts spill to temp files.
const uploadMemoryLimit = 32 << 20

type listVideosResponse struct {
	Items []domain.LibraryEntry `json:"items"`
	Count int                   `json:"count"`
}

type uploadResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"fileName"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	entries, err := s.listLibrary()
	if err != nil {
		s.logger.Error("library scan failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to read media library")
		return
	}
	writeJSON(w, http.StatusOK, listVideosResponse{Items: entries, Count: len(entries)})
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/thumbnails/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "not_found", "thumbnail not found")
		return
	}

	filePath, err := resolveMediaFilePath(s.thumbnailDir, name)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "thumbnail not found")
		return
	}
	if info, statErr := os.Stat(filePath); statErr != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "not_found", "thumbnail not found")
		return
	}

	http.ServeFile(w, r, filePath)
}

// handleUpload stores a multipart video upload under a generated id in the
// media directory and captures a thumbnail for it when possible.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	id := newMediaID()
	fileName := id + strings.ToLower(filepath.Ext(header.Filename))
	targetPath := filepath.Join(s.mediaDir, fileName)

	out, err := os.Create(targetPath)
	if err != nil {
		s.logger.Error("upload store failed",
			slog.String("file", fileName),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to store upload")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(targetPath)
		s.logger.Error("upload copy failed",
			slog.String("file", fileName),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to store upload")
		return
	}
	if err := out.Close(); err != nil {
		os.Remove(targetPath)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to store upload")
		return
	}

	resp := uploadResponse{ID: id, FileName: fileName}
	if s.thumbnailer != nil {
		if thumbName, ok := s.thumbnailer.Extract(r.Context(), targetPath); ok {
			resp.Thumbnail = thumbName
		}
	}

	s.logger.Info("video uploaded",
		slog.String("file", fileName),
		slog.String("originalName", header.Filename),
		slog.Int64("sizeBytes", header.Size),
	)
	writeJSON(w, http.StatusCreated, resp)
}
