// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はフェッチ・保存パイプラインのPrometheusメトリクスを収集する。
// ingest.MetricsRecorderを実装する。
type Collector struct {
	fetchSuccess *prometheus.CounterVec
	fetchFail    *prometheus.CounterVec
	remoteStatus *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	rowsUpserted prometheus.Counter
	itemsLogged  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placemirror_fetch_success_total",
			Help: "リモートフェッチ成功の合計数（エンドポイント別）",
		}, []string{"endpoint"}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placemirror_fetch_fail_total",
			Help: "リモートフェッチ失敗の合計数（エンドポイント別）",
		}, []string{"endpoint"}),
		remoteStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placemirror_remote_status_total",
			Help: "リモートAPIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "placemirror_fetch_latency_seconds",
			Help:    "リモートフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		rowsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "placemirror_rows_upserted_total",
			Help: "UPSERTされたドメイン行の合計数",
		}),
		itemsLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "placemirror_items_logged_total",
			Help: "追記された正規化アイテムの合計数",
		}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.remoteStatus,
		c.fetchLatency,
		c.rowsUpserted,
		c.itemsLogged,
	)

	return c
}

// RecordFetchSuccess はフェッチ成功を記録する。
func (c *Collector) RecordFetchSuccess(endpoint string) {
	c.fetchSuccess.WithLabelValues(endpoint).Inc()
}

// RecordFetchFailure はフェッチ失敗を記録する。
func (c *Collector) RecordFetchFailure(endpoint string) {
	c.fetchFail.WithLabelValues(endpoint).Inc()
}

// RecordRemoteStatus はリモートAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordRemoteStatus(statusCode int) {
	c.remoteStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はリモートフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordRowsUpserted はUPSERTされたドメイン行数を記録する。
func (c *Collector) RecordRowsUpserted(count int) {
	c.rowsUpserted.Add(float64(count))
}

// RecordItemsLogged は追記された正規化アイテム数を記録する。
func (c *Collector) RecordItemsLogged(count int) {
	c.itemsLogged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
