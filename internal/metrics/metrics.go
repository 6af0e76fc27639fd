// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// HTTPミドルウェア、サービス層、クリーンアップワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordFriendship(operation string)
	RecordNestCreated()
	RecordNestDeleted()
	RecordTimeCreated()
	RecordFreetCreated()
	RecordCleanup(kind string, deleted int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	friendships     *prometheus.CounterVec
	nestsCreated    prometheus.Counter
	nestsDeleted    prometheus.Counter
	timesCreated    prometheus.Counter
	freetsCreated   prometheus.Counter
	cleanupDeleted  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nestfeed_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nestfeed_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		friendships: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nestfeed_friendships_total",
			Help: "操作別のフレンド更新数",
		}, []string{"operation"}),
		nestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nestfeed_nests_created_total",
			Help: "作成されたNestの合計数",
		}),
		nestsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nestfeed_nests_deleted_total",
			Help: "削除されたNestの合計数",
		}),
		timesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nestfeed_times_created_total",
			Help: "作成されたTimeの合計数（Nest作成時のデフォルトを含む）",
		}),
		freetsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nestfeed_freets_created_total",
			Help: "投稿されたFreetの合計数",
		}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nestfeed_cleanup_deleted_total",
			Help: "クリーンアップで削除されたレコード数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.friendships,
		c.nestsCreated,
		c.nestsDeleted,
		c.timesCreated,
		c.freetsCreated,
		c.cleanupDeleted,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordFriendship はフレンドの追加・削除を記録する。
func (c *Collector) RecordFriendship(operation string) {
	c.friendships.WithLabelValues(operation).Inc()
}

// RecordNestCreated はNest作成を記録する。
func (c *Collector) RecordNestCreated() {
	c.nestsCreated.Inc()
}

// RecordNestDeleted はNest削除を記録する。
func (c *Collector) RecordNestDeleted() {
	c.nestsDeleted.Inc()
}

// RecordTimeCreated はTime作成を記録する。
func (c *Collector) RecordTimeCreated() {
	c.timesCreated.Inc()
}

// RecordFreetCreated はFreet投稿を記録する。
func (c *Collector) RecordFreetCreated() {
	c.freetsCreated.Inc()
}

// RecordCleanup はクリーンアップでの削除件数を記録する。
func (c *Collector) RecordCleanup(kind string, deleted int64) {
	c.cleanupDeleted.WithLabelValues(kind).Add(float64(deleted))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
