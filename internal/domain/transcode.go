package domain

// TranscodeBackend selects the ffmpeg encoder family used for live
// transcoding. Anything unrecognized falls back to CPU encoding.
type TranscodeBackend string

const (
	BackendCPU    TranscodeBackend = "cpu"
	BackendIntel  TranscodeBackend = "intel"
	BackendAMD    TranscodeBackend = "amd"
	BackendNvidia TranscodeBackend = "nvidia"
)

// ParseBackend normalizes a backend name, defaulting to CPU.
func ParseBackend(s string) TranscodeBackend {
	switch TranscodeBackend(s) {
	case BackendCPU, BackendIntel, BackendAMD, BackendNvidia:
		return TranscodeBackend(s)
	default:
		return BackendCPU
	}
}

// ValidQuality reports whether a requested target height is one the
// streaming endpoint will transcode to.
func ValidQuality(height int) bool {
	switch height {
	case 480, 720, 1080:
		return true
	}
	return false
}
