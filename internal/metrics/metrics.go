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
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordInferenceSuccess(model string)
	RecordInferenceFailure(model string, reason string)
	RecordInferenceLatency(duration time.Duration)
	RecordMessagesCreated(vault string, count int)
	RecordTemporaryPurged(count int64)
	RecordSessionsCleaned(count int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	inferenceSuccess *prometheus.CounterVec
	inferenceFail    *prometheus.CounterVec
	inferenceLatency prometheus.Histogram
	messagesCreated  *prometheus.CounterVec
	temporaryPurged  prometheus.Counter
	sessionsCleaned  prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// inferenceBuckets は推論レイテンシのヒストグラムバケット（秒）。
// 応答生成は数秒から数十秒かかるためDefBucketsより広く取る。
var inferenceBuckets = []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 120}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		inferenceSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relateai_inference_success_total",
			Help: "推論サービス呼び出し成功の合計数",
		}, []string{"model"}),
		inferenceFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relateai_inference_fail_total",
			Help: "推論サービス呼び出し失敗の合計数",
		}, []string{"model", "reason"}),
		inferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relateai_inference_latency_seconds",
			Help:    "推論サービス呼び出しのレイテンシ（秒）",
			Buckets: inferenceBuckets,
		}),
		messagesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relateai_messages_created_total",
			Help: "保存されたメッセージの合計数",
		}, []string{"vault"}),
		temporaryPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relateai_temporary_messages_purged_total",
			Help: "削除されたtemporaryメッセージの合計数",
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relateai_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relateai_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.inferenceSuccess,
		c.inferenceFail,
		c.inferenceLatency,
		c.messagesCreated,
		c.temporaryPurged,
		c.sessionsCleaned,
		c.httpStatus,
	)

	return c
}

// RecordInferenceSuccess は推論成功を記録する。
func (c *Collector) RecordInferenceSuccess(model string) {
	c.inferenceSuccess.WithLabelValues(model).Inc()
}

// RecordInferenceFailure は推論失敗を記録する。
func (c *Collector) RecordInferenceFailure(model string, reason string) {
	c.inferenceFail.WithLabelValues(model, reason).Inc()
}

// RecordInferenceLatency は推論のレイテンシを記録する。
func (c *Collector) RecordInferenceLatency(duration time.Duration) {
	c.inferenceLatency.Observe(duration.Seconds())
}

// RecordMessagesCreated は保存されたメッセージ数を記録する。
func (c *Collector) RecordMessagesCreated(vault string, count int) {
	c.messagesCreated.WithLabelValues(vault).Add(float64(count))
}

// RecordTemporaryPurged は削除されたtemporaryメッセージ数を記録する。
func (c *Collector) RecordTemporaryPurged(count int64) {
	c.temporaryPurged.Add(float64(count))
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクス無効時やテストで使用する。
type Nop struct{}

func (Nop) RecordInferenceSuccess(string)         {}
func (Nop) RecordInferenceFailure(string, string) {}
func (Nop) RecordInferenceLatency(time.Duration)  {}
func (Nop) RecordMessagesCreated(string, int)     {}
func (Nop) RecordTemporaryPurged(int64)           {}
func (Nop) RecordSessionsCleaned(int64)           {}
func (Nop) RecordHTTPStatus(int)                  {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
