package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	PackagesBuilt        prometheus.Counter
	PackageBuildFailures prometheus.Counter
	PackageBuildDuration prometheus.Histogram
	ManifestFilesWalked  prometheus.Counter
	ArchiveBytesWritten  prometheus.Counter
	SubmissionsReceived  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PackagesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driveoff_packages_built_total",
			Help: "Total number of archive packages assembled",
		}),
		PackageBuildFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driveoff_package_build_failures_total",
			Help: "Total number of archive package builds that failed",
		}),
		PackageBuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "driveoff_package_build_duration_seconds",
			Help:    "Wall-clock duration of archive package builds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ManifestFilesWalked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driveoff_manifest_files_walked_total",
			Help: "Total number of filesystem entries listed by the manifest generator",
		}),
		ArchiveBytesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driveoff_archive_bytes_written_total",
			Help: "Total bytes written to final archive files",
		}),
		SubmissionsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driveoff_submissions_received_total",
			Help: "Total number of offboarding submissions accepted",
		}),
	}
}

func (m *Metrics) ObserveBuild(seconds float64) {
	if m == nil {
		return
	}
	m.PackagesBuilt.Inc()
	m.PackageBuildDuration.Observe(seconds)
}

func (m *Metrics) IncrementBuildFailures() {
	if m == nil {
		return
	}
	m.PackageBuildFailures.Inc()
}

func (m *Metrics) AddManifestFiles(n int) {
	if m == nil {
		return
	}
	m.ManifestFilesWalked.Add(float64(n))
}

func (m *Metrics) AddArchiveBytes(n int64) {
	if m == nil {
		return
	}
	m.ArchiveBytesWritten.Add(float64(n))
}

func (m *Metrics) IncrementSubmissions() {
	if m == nil {
		return
	}
	m.SubmissionsReceived.Inc()
}
