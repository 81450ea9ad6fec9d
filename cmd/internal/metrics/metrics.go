package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics exposes the counters of the scheduled backup mode
type Metrics struct {
	backups      prometheus.Counter
	lastSuccess  prometheus.Gauge
	archiveBytes prometheus.Gauge
	errors       *prometheus.CounterVec
}

// New generates the metrics of the scheduled backup mode
func New() *Metrics {
	return &Metrics{
		backups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gepgdb_backups_total",
			Help: "total number of successfully uploaded dump archives",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gepgdb_backup_success",
			Help: "is 1 when the last backup run succeeded, otherwise 0",
		}),
		archiveBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gepgdb_backup_archive_bytes",
			Help: "size of the last uploaded dump archive in bytes",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gepgdb_backup_errors_total",
			Help: "total number of failed backup runs",
		}, []string{"operation"}),
	}
}

// Start registers the metrics and serves them on addr
func (m *Metrics) Start(log *zap.SugaredLogger, addr string) {
	prometheus.MustRegister(m.backups, m.lastSuccess, m.archiveBytes, m.errors)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Infow("starting metrics server", "addr", addr)

	go func() {
		server := http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 1 * time.Minute,
		}
		if err := server.ListenAndServe(); err != nil {
			log.Fatal(err)
		}
	}()
}

// CountBackup updates the metrics after a successfully uploaded dump archive
func (m *Metrics) CountBackup(archivePath string) {
	m.backups.Inc()
	m.lastSuccess.Set(1)

	if info, err := os.Stat(archivePath); err == nil {
		m.archiveBytes.Set(float64(info.Size()))
	}
}

// CountError counts a failed run of the given operation
func (m *Metrics) CountError(op string) {
	m.lastSuccess.Set(0)
	m.errors.WithLabelValues(op).Inc()
}
