package domain

import (
	"math"
	"time"
)

// JobSnapshot is a point-in-time copy of a download job's observable state.
// Progress is a percentage rounded to one decimal, rates are bytes per
// second. Pointer fields stay null until the underlying event happened;
// timestamps are UTC so they serialize with a trailing Z.
type JobSnapshot struct {
	ID             string     `json:"id"`
	Magnet         string     `json:"magnet"`
	Name           string     `json:"name"`
	Status         JobStatus  `json:"status"`
	Error          string     `json:"error,omitempty"`
	Progress       float64    `json:"progress"`
	DownloadRate   float64    `json:"downloadRate"`
	UploadRate     float64    `json:"uploadRate"`
	ElapsedSeconds int64      `json:"elapsedSeconds"`
	ETASeconds     *int64     `json:"etaSeconds,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// ProgressPercent converts a completion fraction in [0,1] to a percentage
// rounded to one decimal place.
func ProgressPercent(fraction float64) float64 {
	return math.Round(fraction*1000) / 10
}
