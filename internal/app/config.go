package app

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	MediaDir           string
	ThumbnailDir       string
	DownloadTempDir    string
	FFMPEGPath         string
	FFProbePath        string
	TranscodeBackend   string
	TorrentListenPort  int
	MaxUploadBytes     int64
	DownloadExtensions []string
	CORSAllowedOrigins []string
}

// defaultDownloadExtensions is the allow-list applied to finished
// downloads when a job request names none.
const defaultDownloadExtensions = ".mp4,.mkv,.webm,.avi,.mov,.flv,.wmv"

func LoadConfig() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		MediaDir:           getEnv("MEDIA_DIR", "media"),
		ThumbnailDir:       getEnv("THUMBNAIL_DIR", "thumbnails"),
		DownloadTempDir:    getEnv("DOWNLOAD_TEMP_DIR", "downloads"),
		FFMPEGPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFProbePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		TranscodeBackend:   strings.ToLower(getEnv("TRANSCODE_BACKEND", "cpu")),
		TorrentListenPort:  int(getEnvInt64("TORRENT_LISTEN_PORT", 6881)),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 15<<30),
		DownloadExtensions: parseCSV(getEnv("DOWNLOAD_EXTENSIONS", defaultDownloadExtensions)),
		CORSAllowedOrigins: parseCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func parseCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
