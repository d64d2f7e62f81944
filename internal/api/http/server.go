package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"mediaserve/internal/app"
	"mediaserve/internal/domain"
	"mediaserve/internal/domain/ports"
	"mediaserve/internal/download"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type DownloadService interface {
	Add(magnetURI string, extensions []string) (*download.Job, error)
	List() []domain.JobSnapshot
	Delete(id string) bool
	Count() int
	Ready() bool
}

type TranscodeStarter interface {
	Available() bool
	Start(ctx context.Context, sourcePath string, targetHeight int, backend domain.TranscodeBackend) (ports.EncoderProcess, error)
}

type ThumbnailExtractor interface {
	Extract(ctx context.Context, sourcePath string) (string, bool)
}

type TranscodeSettingsController interface {
	Get() app.TranscodeSettings
	Backend() domain.TranscodeBackend
	Update(settings app.TranscodeSettings)
}

const defaultMaxUploadBytes = 15 << 30

type Server struct {
	downloads   DownloadService
	transcoder  TranscodeStarter
	thumbnailer ThumbnailExtractor
	settings    TranscodeSettingsController

	mediaDir       string
	thumbnailDir   string
	tempDir        string
	maxUploadBytes int64
	allowedOrigins []string

	logger  *slog.Logger
	handler http.Handler
	wsHub   *wsHub
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMediaDir sets the directory holding playable files. The path is
// normalized to an absolute one so containment checks in the file handlers
// work regardless of the working directory.
func WithMediaDir(dir string) ServerOption {
	return func(s *Server) {
		s.mediaDir = normalizeDir(dir)
	}
}

func WithThumbnailDir(dir string) ServerOption {
	return func(s *Server) {
		s.thumbnailDir = normalizeDir(dir)
	}
}

func WithTempDir(dir string) ServerOption {
	return func(s *Server) {
		s.tempDir = normalizeDir(dir)
	}
}

func WithTranscoder(t TranscodeStarter) ServerOption {
	return func(s *Server) {
		s.transcoder = t
	}
}

func WithThumbnailer(t ThumbnailExtractor) ServerOption {
	return func(s *Server) {
		s.thumbnailer = t
	}
}

func WithTranscodeSettings(ctrl TranscodeSettingsController) ServerOption {
	return func(s *Server) {
		s.settings = ctrl
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithMaxUploadBytes caps the request body accepted by the upload endpoint.
// Non-positive values keep the default.
func WithMaxUploadBytes(limit int64) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.maxUploadBytes = limit
		}
	}
}

func normalizeDir(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Clean(dir)
}

func NewServer(downloads DownloadService, opts ...ServerOption) *Server {
	s := &Server{
		downloads:      downloads,
		mediaDir:       "media",
		thumbnailDir:   "thumbnails",
		tempDir:        "downloads",
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/videos", s.handleVideos)
	mux.HandleFunc("/stream/", s.handleStream)
	mux.HandleFunc("/thumbnails/", s.handleThumbnail)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/downloads", s.handleDownloads)
	mux.HandleFunc("/downloads/", s.handleDownloadByID)
	mux.HandleFunc("/settings/transcode", s.handleTranscodeSettings)
	mux.HandleFunc("/internal/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "media-engine",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/internal/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastJobs sends the full download job list to all WebSocket clients.
func (s *Server) BroadcastJobs(jobs []domain.JobSnapshot) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.BroadcastJobs(jobs)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close shuts down the WebSocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
