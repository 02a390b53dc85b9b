package monitor

import "github.com/prometheus/client_golang/prometheus"

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// SnapshotRefreshTotal 数据集刷新次数
	SnapshotRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_refresh_total",
			Help: "Total number of dataset refreshes by outcome.",
		},
		[]string{"dataset", "status"},
	)
	SnapshotRefreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_refresh_duration_seconds",
			Help:    "Time taken to fetch and persist one dataset.",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"dataset"},
	)
	SnapshotRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_records",
			Help: "Number of records in the last persisted snapshot.",
		},
		[]string{"dataset"},
	)

	// SubgraphRequestsTotal subgraph 请求相关
	SubgraphRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subgraph_requests_total",
			Help: "Total number of GraphQL requests sent to subgraphs.",
		},
		[]string{"source", "status"},
	)
	SubgraphPagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subgraph_pages_fetched_total",
			Help: "Total number of pages fetched during paginated queries.",
		},
		[]string{"source", "entity"},
	)

	// WarsSeriesLastBlock wars 序列最后一个区块
	WarsSeriesLastBlock = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wars_series_last_block",
			Help: "Block number of the last observation in the wars series.",
		},
	)

	// ResultCacheRequests 看板结果缓存命中
	ResultCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_requests_total",
			Help: "Dashboard result cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		// 刷新指标
		SnapshotRefreshTotal,
		SnapshotRefreshDuration,
		SnapshotRecords,

		// subgraph 指标
		SubgraphRequestsTotal,
		SubgraphPagesFetched,

		WarsSeriesLastBlock,
		ResultCacheRequests,
	)
}
