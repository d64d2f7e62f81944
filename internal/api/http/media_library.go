package apihttp

import (
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"mediaserve/internal/domain"
)

var (
	yearPattern      = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	noiseToken       = regexp.MustCompile(`(?i)\b(480p|720p|1080p|2160p|x264|x265|h264|h265|hevc|bluray|bdrip|web[- ]?dl|webrip|dvdrip|hdrip|aac|ac3|dts|proper|repack|remux|extended|10bit|8bit)\b`)
	separatorPattern = regexp.MustCompile(`[._]+`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

var mediaVideoExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".mkv": {}, ".avi": {},
	".wmv": {}, ".flv": {}, ".webm": {}, ".ts": {}, ".m2ts": {},
}

// listLibrary scans the media directory and returns playable entries sorted
// by display name. Subdirectories, dotfiles and non-video files are skipped.
func (s *Server) listLibrary() ([]domain.LibraryEntry, error) {
	dirEntries, err := os.ReadDir(s.mediaDir)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LibraryEntry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		name := dirEntry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := mediaVideoExtensions[ext]; !ok {
			continue
		}
		info, err := dirEntry.Info()
		if err != nil {
			continue
		}
		entries = append(entries, buildLibraryEntry(name, info))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DisplayName != entries[j].DisplayName {
			return entries[i].DisplayName < entries[j].DisplayName
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func buildLibraryEntry(name string, info os.FileInfo) domain.LibraryEntry {
	ext := strings.ToLower(filepath.Ext(name))
	nameWithoutExt := strings.TrimSuffix(name, filepath.Ext(name))

	displayName := normalizeMediaName(nameWithoutExt)
	if displayName == "" {
		displayName = nameWithoutExt
	}

	entry := domain.LibraryEntry{
		Name:        name,
		DisplayName: displayName,
		SizeBytes:   info.Size(),
		ModifiedAt:  info.ModTime().UTC(),
	}

	if yearMatch := yearPattern.FindStringSubmatch(nameWithoutExt); len(yearMatch) == 2 {
		entry.Year = yearMatch[1]
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = fallbackContentType(ext)
	}
	entry.ContentType = contentType
	return entry
}

// normalizeMediaName strips release-name noise: separators become spaces,
// codec and source tags are dropped, and whitespace runs collapse.
func normalizeMediaName(name string) string {
	out := separatorPattern.ReplaceAllString(name, " ")
	out = noiseToken.ReplaceAllString(out, " ")
	out = strings.TrimSpace(spacePattern.ReplaceAllString(out, " "))
	return out
}
