package ffmpeg

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mediaserve/internal/domain"
	"mediaserve/internal/metrics"
)

// DurationProber yields media metadata for picking the capture point.
type DurationProber interface {
	Probe(ctx context.Context, path string) (domain.MediaInfo, error)
}

// Thumbnailer captures single-frame JPEG previews of local video files.
// Extraction is strictly best-effort: every failure mode reports ok=false
// and never an error, so callers treat a missing thumbnail as routine.
type Thumbnailer struct {
	binary string
	prober DurationProber
	dir    string
	logger *slog.Logger
}

func NewThumbnailer(binary string, prober DurationProber, dir string, logger *slog.Logger) *Thumbnailer {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Thumbnailer{binary: bin, prober: prober, dir: dir, logger: logger}
}

// Available reports whether the encoder binary can be found on PATH.
func (t *Thumbnailer) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Extract captures one frame of sourcePath into the thumbnail directory
// and returns the generated file name.
func (t *Thumbnailer) Extract(ctx context.Context, sourcePath string) (string, bool) {
	if _, err := os.Stat(sourcePath); err != nil {
		return "", false
	}
	if !t.Available() {
		return "", false
	}

	name := newThumbName()
	outPath := filepath.Join(t.dir, name)

	cmd := exec.CommandContext(ctx, t.binary,
		"-y",
		"-ss", formatTimestamp(t.capturePoint(ctx, sourcePath)),
		"-i", sourcePath,
		"-vframes", "1",
		"-vf", "scale=1280:-1",
		"-q:v", "5",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.ThumbnailFailuresTotal.Inc()
		t.logger.Warn("thumbnail capture failed",
			slog.String("source", filepath.Base(sourcePath)),
			slog.String("error", strings.TrimSpace(stderr.String())),
		)
		// Drop whatever partial file ffmpeg left behind.
		os.Remove(outPath)
		return "", false
	}
	metrics.ThumbnailsGeneratedTotal.Inc()
	return name, true
}

// capturePoint picks the frame time: a quarter into the video, but at
// least one second in. Unprobeable sources fall back to one second.
func (t *Thumbnailer) capturePoint(ctx context.Context, sourcePath string) float64 {
	const fallback = 1.0
	if t.prober == nil {
		return fallback
	}
	info, err := t.prober.Probe(ctx, sourcePath)
	if err != nil || info.Duration <= 0 {
		return fallback
	}
	if point := info.Duration * 0.25; point > fallback {
		return point
	}
	return fallback
}

// formatTimestamp renders seconds as HH:MM:SS.mmm for the -ss flag.
func formatTimestamp(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

func newThumbName() string {
	u := uuid.New()
	return hex.EncodeToString(u[:]) + ".jpg"
}
