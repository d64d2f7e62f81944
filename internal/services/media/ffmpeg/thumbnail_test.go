package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"mediaserve/internal/domain"
)

type fakeProber struct {
	duration float64
	err      error
	calls    int
}

func (f *fakeProber) Probe(ctx context.Context, path string) (domain.MediaInfo, error) {
	f.calls++
	if f.err != nil {
		return domain.MediaInfo{}, f.err
	}
	return domain.MediaInfo{Duration: f.duration}, nil
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00.000"},
		{1, "00:00:01.000"},
		{95.5, "00:01:35.500"},
		{3600, "01:00:00.000"},
		{3725.25, "01:02:05.250"},
		{7199.999, "01:59:59.999"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestCapturePoint(t *testing.T) {
	tests := []struct {
		name   string
		prober DurationProber
		want   float64
	}{
		{"nil prober", nil, 1.0},
		{"probe error", &fakeProber{err: errors.New("boom")}, 1.0},
		{"zero duration", &fakeProber{duration: 0}, 1.0},
		{"short clip stays at one second", &fakeProber{duration: 3}, 1.0},
		{"quarter point", &fakeProber{duration: 100}, 25.0},
		{"boundary at four seconds", &fakeProber{duration: 4}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := NewThumbnailer("ffmpeg", tt.prober, t.TempDir(), nil)
			if got := th.capturePoint(context.Background(), "x.mkv"); got != tt.want {
				t.Fatalf("capturePoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractMissingSource(t *testing.T) {
	th := NewThumbnailer("ffmpeg", nil, t.TempDir(), nil)
	name, ok := th.Extract(context.Background(), "/no/such/video.mkv")
	if ok || name != "" {
		t.Fatalf("Extract(missing) = (%q, %v), want empty and false", name, ok)
	}
}

func TestExtractBinaryUnavailable(t *testing.T) {
	src := filepath.Join(t.TempDir(), "video.mkv")
	if err := os.WriteFile(src, []byte("not a video"), 0o644); err != nil {
		t.Fatal(err)
	}

	th := NewThumbnailer("definitely-not-a-real-encoder", nil, t.TempDir(), nil)
	if name, ok := th.Extract(context.Background(), src); ok || name != "" {
		t.Fatalf("Extract() = (%q, %v) without a binary, want empty and false", name, ok)
	}
}

func TestExtractFailureLeavesNoPartialFile(t *testing.T) {
	ffmpegBinaryAvailable(t)

	src := filepath.Join(t.TempDir(), "garbage.mkv")
	if err := os.WriteFile(src, []byte("not a video at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()

	th := NewThumbnailer("ffmpeg", nil, outDir, nil)
	if name, ok := th.Extract(context.Background(), src); ok {
		t.Fatalf("Extract() succeeded on garbage input: %q", name)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("thumbnail dir not empty after failed capture: %v", entries)
	}
}

func TestExtractGeneratesJPEG(t *testing.T) {
	ffmpegBinaryAvailable(t)

	src := filepath.Join(t.TempDir(), "clip.mkv")
	gen := exec.Command("ffmpeg",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=5",
		"-c:v", "libx264", "-preset", "ultrafast",
		"-y", src,
	)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg failed to create test clip: %v\n%s", err, out)
	}

	outDir := t.TempDir()
	th := NewThumbnailer("ffmpeg", &fakeProber{duration: 2}, outDir, nil)

	name, ok := th.Extract(context.Background(), src)
	if !ok {
		t.Fatal("Extract() failed on a valid clip")
	}
	if !strings.HasSuffix(name, ".jpg") || len(name) != 32+len(".jpg") {
		t.Fatalf("thumbnail name %q not a 32-char hex id with .jpg suffix", name)
	}

	info, err := os.Stat(filepath.Join(outDir, name))
	if err != nil {
		t.Fatalf("thumbnail file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("thumbnail file is empty")
	}
}

func ffmpegBinaryAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg binary not available, skipping integration test")
	}
}
