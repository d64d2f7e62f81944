package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"mediaserve/internal/domain"
)

type Prober struct {
	binary string
}

func New(binary string) *Prober {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{binary: bin}
}

const maxProbeTimeout = 30 * time.Second

// Probe inspects a local media file and returns its stream layout and
// container duration.
func (p *Prober) Probe(ctx context.Context, filePath string) (domain.MediaInfo, error) {
	path := strings.TrimSpace(filePath)
	if path == "" {
		return domain.MediaInfo{}, errors.New("file path is required")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxProbeTimeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	info, parseErr := parseProbeOutput(stdout.Bytes())
	if parseErr != nil {
		if runErr != nil {
			return domain.MediaInfo{}, probeError(runErr, stderr.String())
		}
		return domain.MediaInfo{}, fmt.Errorf("ffprobe output parse failed: %w", parseErr)
	}

	// ffprobe can exit non-zero for damaged files but still emit usable
	// stream metadata on stdout. Keep metadata if we have it.
	if runErr != nil && len(info.Tracks) == 0 {
		return domain.MediaInfo{}, probeError(runErr, stderr.String())
	}

	return info, nil
}

func probeError(runErr error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		return fmt.Errorf("ffprobe failed: %w", runErr)
	}
	return fmt.Errorf("ffprobe failed: %w: %s", runErr, msg)
}

// probePayload is the subset of ffprobe JSON output we parse.
type probePayload struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType   string            `json:"codec_type"`
	CodecName   string            `json:"codec_name"`
	Tags        map[string]string `json:"tags"`
	Disposition struct {
		Default int `json:"default"`
	} `json:"disposition"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// parseProbeOutput parses raw ffprobe JSON output into a domain.MediaInfo.
// Track indexes count per type, so the second audio stream is audio/1
// regardless of how many video streams precede it.
func parseProbeOutput(data []byte) (domain.MediaInfo, error) {
	var payload probePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.MediaInfo{}, err
	}

	tracks := make([]domain.MediaTrack, 0, len(payload.Streams))
	typeCounts := map[string]int{}

	for _, stream := range payload.Streams {
		switch stream.CodecType {
		case "video", "audio", "subtitle":
			tracks = append(tracks, domain.MediaTrack{
				Index:    typeCounts[stream.CodecType],
				Type:     stream.CodecType,
				Codec:    stream.CodecName,
				Language: strings.TrimSpace(getTag(stream.Tags, "language")),
				Title:    strings.TrimSpace(getTag(stream.Tags, "title")),
				Default:  stream.Disposition.Default == 1,
			})
			typeCounts[stream.CodecType]++
		}
	}

	var duration float64
	if payload.Format.Duration != "" {
		if d, err := strconv.ParseFloat(payload.Format.Duration, 64); err == nil && d > 0 {
			duration = d
		}
	}

	return domain.MediaInfo{Tracks: tracks, Duration: duration}, nil
}

func getTag(tags map[string]string, key string) string {
	if len(tags) == 0 {
		return ""
	}
	if value, ok := tags[key]; ok {
		return value
	}
	if value, ok := tags[strings.ToUpper(key)]; ok {
		return value
	}
	if value, ok := tags[strings.ToLower(key)]; ok {
		return value
	}
	return ""
}
