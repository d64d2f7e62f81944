package ffmpeg

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"mediaserve/internal/domain"
	"mediaserve/internal/domain/ports"
)

// Transcoder launches live transcodes of local media files. Backend
// selection happens per call; falling back to another backend is the
// caller's policy.
type Transcoder struct {
	binary string
	logger *slog.Logger
}

func NewTranscoder(binary string, logger *slog.Logger) *Transcoder {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcoder{binary: bin, logger: logger}
}

// Available reports whether the encoder binary can be found on PATH.
func (t *Transcoder) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Start launches a live transcode of sourcePath downscaled to
// targetHeight. The returned process streams fragmented MP4 from
// Output(); the caller must Stop it on every exit path.
func (t *Transcoder) Start(ctx context.Context, sourcePath string, targetHeight int, backend domain.TranscodeBackend) (ports.EncoderProcess, error) {
	args := buildTranscodeArgs(TranscodeArgConfig{
		Input:        sourcePath,
		TargetHeight: targetHeight,
		Backend:      backend,
	})

	proc := newProcess(ctx, t.binary, args)
	if err := proc.start(); err != nil {
		return nil, err
	}

	t.logger.Debug("transcode started",
		slog.String("source", filepath.Base(sourcePath)),
		slog.Int("targetHeight", targetHeight),
		slog.String("backend", string(backend)),
	)
	return proc, nil
}
