package ffmpeg

import (
	"fmt"

	"mediaserve/internal/domain"
)

// TranscodeArgConfig holds all parameters for building the live-transcode
// argument list. This is a value type — pass it by value to
// buildTranscodeArgs().
type TranscodeArgConfig struct {
	Input        string
	TargetHeight int
	Backend      domain.TranscodeBackend
}

type encoderSpec struct {
	codec   string
	hwaccel string
}

// encoders maps a backend to its H.264 encoder and the hardware
// acceleration flag that has to precede the input.
var encoders = map[domain.TranscodeBackend]encoderSpec{
	domain.BackendCPU:    {codec: "libx264"},
	domain.BackendNvidia: {codec: "h264_nvenc", hwaccel: "cuda"},
	domain.BackendIntel:  {codec: "h264_qsv", hwaccel: "qsv"},
	domain.BackendAMD:    {codec: "h264_vaapi", hwaccel: "vaapi"},
}

// buildTranscodeArgs constructs the ffmpeg argument list for a live
// downscale to fragmented MP4 on stdout. This is a pure function with no
// side effects.
func buildTranscodeArgs(cfg TranscodeArgConfig) []string {
	enc, ok := encoders[cfg.Backend]
	if !ok {
		enc = encoders[domain.BackendCPU]
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	if enc.hwaccel != "" {
		args = append(args, "-hwaccel", enc.hwaccel)
	}
	args = append(args,
		"-i", cfg.Input,
		// The escaped comma keeps min() intact inside the filtergraph.
		// -2 picks an even width for the source aspect ratio; min(ih,H)
		// never upscales.
		"-vf", fmt.Sprintf(`scale=-2:min(ih\,%d)`, cfg.TargetHeight),
		"-c:v", enc.codec,
		"-preset", "fast",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ac", "2",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		"-",
	)
	return args
}
