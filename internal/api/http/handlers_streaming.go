package apihttp

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mediaserve/internal/domain"
	"mediaserve/internal/metrics"
)

// streamCopyBufferSize is the chunk size for both raw file and encoder
// output copies.
const streamCopyBufferSize = 8192

// copyChunks copies src to dst through a fixed-size buffer. The wrappers
// hide the ReaderFrom/WriterTo fast paths, which would otherwise bypass
// the buffer entirely.
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, streamCopyBufferSize)
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf)
}

// handleStream serves GET/HEAD /stream/{name}. A valid quality query value
// switches a GET to a transcoded stream when an encoder is available; in
// every other case the raw file is served with byte-range support.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/stream/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "not_found", "video not found")
		return
	}

	filePath, err := resolveMediaFilePath(s.mediaDir, name)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "video not found")
		return
	}
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "not_found", "video not found")
		return
	}

	if quality := strings.TrimSpace(r.URL.Query().Get("quality")); quality != "" && r.Method == http.MethodGet {
		height, convErr := strconv.Atoi(quality)
		if convErr == nil && domain.ValidQuality(height) && s.transcoder != nil && s.transcoder.Available() {
			if s.serveTranscoded(w, r, filePath, height) {
				return
			}
		}
	}

	s.serveRawFile(w, r, filePath, info.Size())
}

// serveTranscoded starts an encoder for the file and streams its output as
// it is produced. Returns false when no encoder process could be started,
// in which case the caller falls back to the raw file.
func (s *Server) serveTranscoded(w http.ResponseWriter, r *http.Request, filePath string, height int) bool {
	backend := domain.BackendCPU
	if s.settings != nil {
		backend = s.settings.Backend()
	}

	proc, err := s.transcoder.Start(r.Context(), filePath, height, backend)
	if err != nil && backend != domain.BackendCPU {
		s.logger.Warn("hardware transcode failed, retrying on cpu",
			slog.String("backend", string(backend)),
			slog.String("file", filepath.Base(filePath)),
			slog.String("error", err.Error()),
		)
		metrics.TranscodeFallbacksTotal.WithLabelValues("cpu").Inc()
		backend = domain.BackendCPU
		proc, err = s.transcoder.Start(r.Context(), filePath, height, backend)
	}
	if err != nil {
		s.logger.Warn("transcode start failed, serving raw file",
			slog.String("file", filepath.Base(filePath)),
			slog.String("error", err.Error()),
		)
		metrics.TranscodeFailuresTotal.Inc()
		metrics.TranscodeFallbacksTotal.WithLabelValues("raw").Inc()
		return false
	}
	defer proc.Stop()

	metrics.TranscodeStartsTotal.WithLabelValues(string(backend)).Inc()

	// Transcoded output has no known length, so no Content-Length and no
	// byte-range support. Close the connection so players do not reuse it
	// for further range probing.
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)

	if _, err := copyChunks(w, proc.Output()); err != nil {
		s.logger.Debug("transcoded stream interrupted",
			slog.String("file", filepath.Base(filePath)),
			slog.Int("quality", height),
			slog.String("error", err.Error()),
		)
		return true
	}

	// Output drained cleanly; give the encoder a moment to report its exit
	// status so a mid-stream crash is not mistaken for a finished encode.
	select {
	case <-proc.Done():
		if procErr := proc.Err(); procErr != nil {
			metrics.TranscodeFailuresTotal.Inc()
			s.logger.Warn("encoder exited with error",
				slog.String("file", filepath.Base(filePath)),
				slog.String("error", procErr.Error()),
			)
		}
	case <-time.After(2 * time.Second):
	}
	return true
}

func (s *Server) serveRawFile(w http.ResponseWriter, r *http.Request, filePath string, size int64) {
	ext := strings.ToLower(filepath.Ext(filePath))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = fallbackContentType(ext)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")

	// HEAD request: headers only, Range is not interpreted.
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to open video")
		return
	}
	defer file.Close()

	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		start, end, rangeErr := parseByteRange(rangeHeader, size)
		if rangeErr != nil {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		if _, err := file.Seek(start, io.SeekStart); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to seek video")
			return
		}
		length := end - start + 1
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
		w.WriteHeader(http.StatusPartialContent)
		if _, err := copyChunks(w, io.LimitReader(file, length)); err != nil {
			s.logger.Debug("range copy interrupted",
				slog.String("file", filepath.Base(filePath)),
				slog.String("range", rangeHeader),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := copyChunks(w, file); err != nil {
		s.logger.Debug("stream copy interrupted",
			slog.String("file", filepath.Base(filePath)),
			slog.String("error", err.Error()),
		)
	}
}
