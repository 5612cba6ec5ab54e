package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapted from claircore's pkg/poolstats/collector.go, retargeted from
// pgx/v4 to pgx/v5's pgxpool.Stat (same nine statistics, same shape).

type stat interface {
	AcquireCount() int64
	AcquireDuration() time.Duration
	AcquiredConns() int32
	CanceledAcquireCount() int64
	ConstructingConns() int32
	EmptyAcquireCount() int64
	IdleConns() int32
	MaxConns() int32
	TotalConns() int32
}

var _ stat = (*pgxpool.Stat)(nil)

type staterFunc func() stat

// poolCollector is a prometheus.Collector reporting pgxpool's nine Stat
// fields, labeled by application name.
type poolCollector struct {
	name string
	stat staterFunc

	acquireCountDesc         *prometheus.Desc
	acquireDurationDesc      *prometheus.Desc
	acquiredConnsDesc        *prometheus.Desc
	canceledAcquireCountDesc *prometheus.Desc
	constructingConnsDesc    *prometheus.Desc
	emptyAcquireCountDesc    *prometheus.Desc
	idleConnsDesc            *prometheus.Desc
	maxConnsDesc             *prometheus.Desc
	totalConnsDesc           *prometheus.Desc
}

var _ prometheus.Collector = (*poolCollector)(nil)

var poolStatLabels = []string{"application_name"}

// newPoolCollector builds a poolCollector reading stats off pool, labeled
// with appname.
func newPoolCollector(pool *pgxpool.Pool, appname string) *poolCollector {
	return &poolCollector{
		name: appname,
		stat: func() stat { return pool.Stat() },
		acquireCountDesc: prometheus.NewDesc(
			"pgxpool_acquire_count",
			"Cumulative count of successful acquires from the pool.",
			poolStatLabels, nil),
		acquireDurationDesc: prometheus.NewDesc(
			"pgxpool_acquire_duration_seconds_total",
			"Total duration of all successful acquires from the pool.",
			poolStatLabels, nil),
		acquiredConnsDesc: prometheus.NewDesc(
			"pgxpool_acquired_conns",
			"Number of currently acquired connections in the pool.",
			poolStatLabels, nil),
		canceledAcquireCountDesc: prometheus.NewDesc(
			"pgxpool_canceled_acquire_count",
			"Cumulative count of acquires canceled by a context.",
			poolStatLabels, nil),
		constructingConnsDesc: prometheus.NewDesc(
			"pgxpool_constructing_conns",
			"Number of conns with construction in progress.",
			poolStatLabels, nil),
		emptyAcquireCountDesc: prometheus.NewDesc(
			"pgxpool_empty_acquire",
			"Cumulative count of acquires that waited because the pool was empty.",
			poolStatLabels, nil),
		idleConnsDesc: prometheus.NewDesc(
			"pgxpool_idle_conns",
			"Number of currently idle conns in the pool.",
			poolStatLabels, nil),
		maxConnsDesc: prometheus.NewDesc(
			"pgxpool_max_conns",
			"Maximum size of the pool.",
			poolStatLabels, nil),
		totalConnsDesc: prometheus.NewDesc(
			"pgxpool_total_conns",
			"Total number of resources currently in the pool.",
			poolStatLabels, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *poolCollector) Collect(metrics chan<- prometheus.Metric) {
	s := c.stat()
	metrics <- prometheus.MustNewConstMetric(c.acquireCountDesc, prometheus.CounterValue, float64(s.AcquireCount()), c.name)
	metrics <- prometheus.MustNewConstMetric(c.acquireDurationDesc, prometheus.CounterValue, s.AcquireDuration().Seconds(), c.name)
	metrics <- prometheus.MustNewConstMetric(c.acquiredConnsDesc, prometheus.GaugeValue, float64(s.AcquiredConns()), c.name)
	metrics <- prometheus.MustNewConstMetric(c.canceledAcquireCountDesc, prometheus.CounterValue, float64(s.CanceledAcquireCount()), c.name)
	metrics <- prometheus.MustNewConstMetric(c.constructingConnsDesc, prometheus.GaugeValue, float64(s.ConstructingConns()), c.name)
	metrics <- prometheus.MustNewConstMetric(c.emptyAcquireCountDesc, prometheus.CounterValue, float64(s.EmptyAcquireCount()), c.name)
	metrics <- prometheus.MustNewConstMetric(c.idleConnsDesc, prometheus.GaugeValue, float64(s.IdleConns()), c.name)
	metrics <- prometheus.MustNewConstMetric(c.maxConnsDesc, prometheus.GaugeValue, float64(s.MaxConns()), c.name)
	metrics <- prometheus.MustNewConstMetric(c.totalConnsDesc, prometheus.CounterValue, float64(s.TotalConns()), c.name)
}
