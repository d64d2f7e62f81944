package apihttp

import (
	"os"
	"testing"
	"time"
)

func TestNormalizeMediaName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dots become spaces", "Blade.Runner.1982", "Blade Runner 1982"},
		{"underscores become spaces", "holiday_clip", "holiday clip"},
		{"resolution tag stripped", "Movie.1080p", "Movie"},
		{"codec tags stripped", "Movie.2019.x265.HEVC", "Movie 2019"},
		{"source tags stripped", "Movie.BluRay.WEB-DL.AAC", "Movie"},
		{"mixed case noise stripped", "movie.BLURAY.X264", "movie"},
		{"whitespace collapsed", "a..b___c", "a b c"},
		{"hyphens preserved", "spider-man", "spider-man"},
		{"noise only leaves empty", "1080p.x264", ""},
		{"plain name untouched", "My Movie", "My Movie"},
		{"empty input", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeMediaName(tc.in)
			if got != tc.want {
				t.Errorf("normalizeMediaName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func statFile(t *testing.T, dir, name string, size int) os.FileInfo {
	t.Helper()
	path := writeMediaFile(t, dir, name, make([]byte, size))
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return info
}

func TestBuildLibraryEntry(t *testing.T) {
	dir := t.TempDir()

	t.Run("full release name", func(t *testing.T) {
		name := "Blade.Runner.1982.1080p.BluRay.x264.mkv"
		entry := buildLibraryEntry(name, statFile(t, dir, name, 64))

		if entry.Name != name {
			t.Errorf("name = %q", entry.Name)
		}
		if entry.DisplayName != "Blade Runner 1982" {
			t.Errorf("displayName = %q", entry.DisplayName)
		}
		if entry.Year != "1982" {
			t.Errorf("year = %q", entry.Year)
		}
		if entry.SizeBytes != 64 {
			t.Errorf("sizeBytes = %d", entry.SizeBytes)
		}
		if entry.ContentType != "video/x-matroska" {
			t.Errorf("contentType = %q", entry.ContentType)
		}
		if entry.ModifiedAt.IsZero() {
			t.Error("modifiedAt is zero")
		}
		if entry.ModifiedAt.Location() != time.UTC {
			t.Error("modifiedAt not normalized to UTC")
		}
	})

	t.Run("first year token wins", func(t *testing.T) {
		name := "Blade.Runner.2049.2017.mp4"
		entry := buildLibraryEntry(name, statFile(t, dir, name, 1))

		if entry.Year != "2049" {
			t.Errorf("year = %q, want first match", entry.Year)
		}
	})

	t.Run("no year", func(t *testing.T) {
		name := "holiday_clip.mp4"
		entry := buildLibraryEntry(name, statFile(t, dir, name, 1))

		if entry.Year != "" {
			t.Errorf("year = %q, want empty", entry.Year)
		}
		if entry.DisplayName != "holiday clip" {
			t.Errorf("displayName = %q", entry.DisplayName)
		}
		if entry.ContentType != "video/mp4" {
			t.Errorf("contentType = %q", entry.ContentType)
		}
	})

	t.Run("noise only name falls back to raw", func(t *testing.T) {
		name := "1080p.x264.mp4"
		entry := buildLibraryEntry(name, statFile(t, dir, name, 1))

		// Normalization strips everything, so the raw name stands in.
		if entry.DisplayName != "1080p.x264" {
			t.Errorf("displayName = %q", entry.DisplayName)
		}
	})
}
