package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"proxy-checker/internal/domain"
)

// Module provides the metrics collector
var Module = fx.Options(
	fx.Provide(func() prometheus.Registerer { return prometheus.DefaultRegisterer }),
	fx.Provide(NewCollector),
	fx.Provide(func(c *Collector) domain.MetricsCollector { return c }),
	fx.Invoke(registerServer),
)

type Collector struct {
	logger          *zap.Logger
	checksTotal     *prometheus.CounterVec
	checksDuration  prometheus.Histogram
	lastCheckStatus *prometheus.GaugeVec
	targetProbes    *prometheus.CounterVec
	targetLatency   *prometheus.HistogramVec
	coalescedChecks prometheus.Counter
	batchesTotal    *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	directorySize   prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		logger: logger,
		checksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_checks_total",
				Help: "Total number of proxy checks performed",
			},
			[]string{"status"},
		),
		checksDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "proxy_check_duration_seconds",
				Help:    "Duration of proxy checks across all targets",
				Buckets: prometheus.DefBuckets,
			},
		),
		lastCheckStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "proxy_check_connected_targets",
				Help: "Number of targets reached in the latest check of a proxy",
			},
			[]string{"proxy_id"},
		),
		targetProbes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_target_probes_total",
				Help: "Total number of probe target attempts",
			},
			[]string{"target", "status", "code"},
		),
		targetLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proxy_target_latency_seconds",
				Help:    "Latency of successful probe target attempts",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target"},
		),
		coalescedChecks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "proxy_checks_coalesced_total",
				Help: "Checks that joined an already running check of the same proxy",
			},
		),
		batchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_check_batches_total",
				Help: "Total number of batch checks",
			},
			[]string{"outcome"},
		),
		batchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "proxy_check_batch_duration_seconds",
				Help:    "Duration of batch checks",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		directorySize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "proxy_directory_records",
				Help: "Number of proxy records in the loaded directory",
			},
		),
	}
}

func (c *Collector) RecordCheck(id domain.RecordID, result domain.ConnectivityResult, duration time.Duration) {
	connected := result.ConnectedCount()

	status := "failed"
	switch {
	case connected == len(result.Connectivity) && connected > 0:
		status = "success"
	case connected > 0:
		status = "partial"
	}

	c.checksTotal.WithLabelValues(status).Inc()
	c.checksDuration.Observe(duration.Seconds())
	c.lastCheckStatus.WithLabelValues(formatID(id)).Set(float64(connected))
}

func (c *Collector) RecordTargetProbe(target string, result domain.TargetResult) {
	c.targetProbes.WithLabelValues(target, string(result.Status), string(result.Code)).Inc()
	if result.Connected() {
		c.targetLatency.WithLabelValues(target).Observe(float64(result.LatencyMs) / 1000)
	}
}

func (c *Collector) RecordCoalescedCheck() {
	c.coalescedChecks.Inc()
}

func (c *Collector) RecordBatch(report domain.BatchReport) {
	outcome := "completed"
	if report.Cancelled {
		outcome = "cancelled"
	}
	c.batchesTotal.WithLabelValues(outcome).Inc()
	c.batchDuration.Observe(report.Duration.Seconds())
}

func (c *Collector) SetDirectorySize(n int) {
	c.directorySize.Set(float64(n))
}

func formatID(id domain.RecordID) string {
	return strconv.FormatInt(int64(id), 10)
}
