// Command server runs the media engine: an HTTP API for uploading,
// fetching, and streaming a local video library.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "mediaserve/internal/api/http"
	"mediaserve/internal/app"
	"mediaserve/internal/domain"
	"mediaserve/internal/domain/ports"
	"mediaserve/internal/download"
	"mediaserve/internal/metrics"
	"mediaserve/internal/services/media/ffmpeg"
	"mediaserve/internal/services/media/ffprobe"
	"mediaserve/internal/services/transfer/anacrolix"
	"mediaserve/internal/telemetry"
)

const serviceName = "media-engine"

func main() {
	cfg := app.LoadConfig()

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName)
	if err != nil {
		logger.Warn("telemetry init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
			}
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("mediaDir", cfg.MediaDir),
		slog.String("tempDir", cfg.DownloadTempDir),
		slog.String("transcodeBackend", cfg.TranscodeBackend),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.MediaDir, cfg.ThumbnailDir, cfg.DownloadTempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("cannot create data directory", slog.String("dir", dir), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Assign only on success; a typed-nil engine would defeat the
	// manager's readiness check.
	var transferEngine ports.TransferEngine
	engine, err := anacrolix.New(anacrolix.Config{ListenPort: cfg.TorrentListenPort}, logger)
	if err != nil {
		logger.Error("transfer engine init failed, downloads disabled", slog.String("error", err.Error()))
	} else {
		transferEngine = engine
	}

	prober := ffprobe.New(cfg.FFProbePath)
	transcoder := ffmpeg.NewTranscoder(cfg.FFMPEGPath, logger)
	if !transcoder.Available() {
		logger.Warn("ffmpeg not available, serving raw files only", slog.String("binary", cfg.FFMPEGPath))
	}
	thumbnailer := ffmpeg.NewThumbnailer(cfg.FFMPEGPath, prober, cfg.ThumbnailDir, logger)
	transcodeSettings := app.NewTranscodeSettingsManager(cfg.TranscodeBackend)

	manager := download.NewManager(transferEngine, download.Config{
		TempRoot:   cfg.DownloadTempDir,
		DestDir:    cfg.MediaDir,
		Extensions: cfg.DownloadExtensions,
		OnFinished: func(job domain.JobSnapshot) {
			metrics.JobsFinishedTotal.WithLabelValues(string(job.Status)).Inc()
		},
	}, logger)

	handler := apihttp.NewServer(manager,
		apihttp.WithLogger(logger),
		apihttp.WithMediaDir(cfg.MediaDir),
		apihttp.WithThumbnailDir(cfg.ThumbnailDir),
		apihttp.WithTempDir(cfg.DownloadTempDir),
		apihttp.WithTranscoder(transcoder),
		apihttp.WithThumbnailer(thumbnailer),
		apihttp.WithTranscodeSettings(transcodeSettings),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		apihttp.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)

	go publishJobState(rootCtx, manager, handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// No read or write deadlines: uploads and streams run for as
		// long as the media is large.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", slog.String("error", err.Error()))
	}
	manager.Shutdown()
	if engine != nil {
		if err := engine.Close(); err != nil {
			logger.Warn("transfer engine close failed", slog.String("error", err.Error()))
		}
	}
	logger.Info("server stopped")
}

// publishJobState pushes live job snapshots to websocket clients and
// refreshes the transfer gauges.
func publishJobState(ctx context.Context, manager *download.Manager, handler *apihttp.Server) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobs := manager.List()
			var downloadRate, uploadRate float64
			for _, job := range jobs {
				downloadRate += job.DownloadRate
				uploadRate += job.UploadRate
			}
			metrics.ActiveDownloadJobs.Set(float64(len(jobs)))
			metrics.DownloadSpeedBytes.Set(downloadRate)
			metrics.UploadSpeedBytes.Set(uploadRate)
			handler.BroadcastJobs(jobs)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(levelRaw)}
	var handler slog.Handler
	if strings.EqualFold(formatRaw, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
