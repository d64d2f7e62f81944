package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaserve",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediaserve",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveDownloadJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediaserve",
		Name:      "active_download_jobs",
		Help:      "Number of download jobs currently tracked by the manager.",
	})

	DownloadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediaserve",
		Name:      "download_speed_bytes",
		Help:      "Current aggregate download speed in bytes per second.",
	})

	UploadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediaserve",
		Name:      "upload_speed_bytes",
		Help:      "Current aggregate upload speed in bytes per second.",
	})

	JobsFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaserve",
		Name:      "download_jobs_finished_total",
		Help:      "Total download jobs that reached a terminal state, by status.",
	}, []string{"status"})

	TranscodeStartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaserve",
		Name:      "transcode_starts_total",
		Help:      "Total live transcode sessions started, by encoder backend.",
	}, []string{"backend"})

	TranscodeFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaserve",
		Name:      "transcode_fallbacks_total",
		Help:      "Total transcode fallbacks, by fallback target.",
	}, []string{"to"})

	TranscodeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediaserve",
		Name:      "transcode_failures_total",
		Help:      "Total transcode sessions that ended with an encoder error.",
	})

	ThumbnailsGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediaserve",
		Name:      "thumbnails_generated_total",
		Help:      "Total thumbnails generated successfully.",
	})

	ThumbnailFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediaserve",
		Name:      "thumbnail_failures_total",
		Help:      "Total thumbnail extraction failures.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveDownloadJobs,
		DownloadSpeedBytes,
		UploadSpeedBytes,
		JobsFinishedTotal,
		TranscodeStartsTotal,
		TranscodeFallbacksTotal,
		TranscodeFailuresTotal,
		ThumbnailsGeneratedTotal,
		ThumbnailFailuresTotal,
	)
}
