package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var msBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000}

var (
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyhtm_queries_total",
		Help: "Total number of API queries by operation",
	}, []string{"op"})
	QueryErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyhtm_query_errors_total",
		Help: "Total number of rejected or failed API queries by operation",
	}, []string{"op"})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skyhtm_query_duration_ms",
		Help:    "Query duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"op"})
	NodesVisited = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyhtm_intersect_nodes",
		Help:    "Trixels classified per intersection",
		Buckets: prometheus.ExponentialBuckets(8, 4, 10),
	})
	ResultIntervals = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyhtm_result_intervals",
		Help:    "Intervals per region reply after defrag",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
	ObjectsReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyhtm_objects_returned",
		Help:    "Catalog objects returned per region query",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skyhtm_empty_results_total",
		Help: "Total number of region queries with no intervals",
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyhtm_cache_hits_total",
		Help: "Total reply cache hits by layer",
	}, []string{"layer"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skyhtm_cache_misses_total",
		Help: "Total reply cache misses",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skyhtm_rate_limited_total",
		Help: "Total requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryErrorsTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(NodesVisited)
	prometheus.MustRegister(ResultIntervals)
	prometheus.MustRegister(ObjectsReturned)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
