// Package metrics exposes the worker-node engine's live counters as a
// Prometheus collector, grounded on the Desc-based collector pattern
// used elsewhere in the corpus: the collector holds no state of its
// own, only Desc templates, and pulls current values from a
// StatsSource on every Collect call.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is the read-only view of a running worker node's
// counters the collector pulls from. search.WorkerNode satisfies it.
type StatsSource interface {
	GlobalQueueDepth() uint64
	BackendQueueDepth() uint64
	HitsCollected() uint64
	FrontendThreads() int
	BackendThreads() int
	WorkRequestsSent() uint64
	StealsAttempted() uint64
	StealsSucceeded() uint64
}

// Collector adapts a StatsSource into a prometheus.Collector.
type Collector struct {
	source StatsSource

	globalQueueDepthDesc  *prometheus.Desc
	backendQueueDepthDesc *prometheus.Desc
	hitsCollectedDesc     *prometheus.Desc
	frontendThreadsDesc   *prometheus.Desc
	backendThreadsDesc    *prometheus.Desc
	workRequestsSentDesc  *prometheus.Desc
	stealsAttemptedDesc   *prometheus.Desc
	stealsSucceededDesc   *prometheus.Desc
}

// NewCollector wraps source. namespace prefixes every metric name
// (e.g. "hmmworker").
func NewCollector(source StatsSource, namespace string) *Collector {
	return &Collector{
		source: source,

		globalQueueDepthDesc: prometheus.NewDesc(
			namespace+"_global_queue_depth",
			"Number of object IDs currently queued in the global work queue",
			nil, nil,
		),
		backendQueueDepthDesc: prometheus.NewDesc(
			namespace+"_backend_queue_depth",
			"Number of deferred comparisons currently queued for the back-end stage",
			nil, nil,
		),
		hitsCollectedDesc: prometheus.NewDesc(
			namespace+"_hits_collected",
			"Number of hits currently held by the hit collector for the active search",
			nil, nil,
		),
		frontendThreadsDesc: prometheus.NewDesc(
			namespace+"_frontend_threads",
			"Number of threads currently assigned front-end duty",
			nil, nil,
		),
		backendThreadsDesc: prometheus.NewDesc(
			namespace+"_backend_threads",
			"Number of threads currently assigned back-end duty",
			nil, nil,
		),
		workRequestsSentDesc: prometheus.NewDesc(
			namespace+"_work_requests_sent_total",
			"Total WorkRequest messages sent to the master",
			nil, nil,
		),
		stealsAttemptedDesc: prometheus.NewDesc(
			namespace+"_steals_attempted_total",
			"Total work-stealing attempts across all threads",
			nil, nil,
		),
		stealsSucceededDesc: prometheus.NewDesc(
			namespace+"_steals_succeeded_total",
			"Total successful work-stealing attempts across all threads",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.globalQueueDepthDesc
	ch <- c.backendQueueDepthDesc
	ch <- c.hitsCollectedDesc
	ch <- c.frontendThreadsDesc
	ch <- c.backendThreadsDesc
	ch <- c.workRequestsSentDesc
	ch <- c.stealsAttemptedDesc
	ch <- c.stealsSucceededDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.globalQueueDepthDesc, prometheus.GaugeValue, float64(c.source.GlobalQueueDepth()))
	ch <- prometheus.MustNewConstMetric(c.backendQueueDepthDesc, prometheus.GaugeValue, float64(c.source.BackendQueueDepth()))
	ch <- prometheus.MustNewConstMetric(c.hitsCollectedDesc, prometheus.GaugeValue, float64(c.source.HitsCollected()))
	ch <- prometheus.MustNewConstMetric(c.frontendThreadsDesc, prometheus.GaugeValue, float64(c.source.FrontendThreads()))
	ch <- prometheus.MustNewConstMetric(c.backendThreadsDesc, prometheus.GaugeValue, float64(c.source.BackendThreads()))
	ch <- prometheus.MustNewConstMetric(c.workRequestsSentDesc, prometheus.CounterValue, float64(c.source.WorkRequestsSent()))
	ch <- prometheus.MustNewConstMetric(c.stealsAttemptedDesc, prometheus.CounterValue, float64(c.source.StealsAttempted()))
	ch <- prometheus.MustNewConstMetric(c.stealsSucceededDesc, prometheus.CounterValue, float64(c.source.StealsSucceeded()))
}
