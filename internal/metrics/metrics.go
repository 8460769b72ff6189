// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordTokenRefresh()
	RecordUpload()
	RecordUploadFailure(reason string)
	RecordUploadBytes(size int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess prometheus.Counter
	loginFail    *prometheus.CounterVec
	tokenRefresh prometheus.Counter
	uploads      prometheus.Counter
	uploadFail   *prometheus.CounterVec
	uploadBytes  prometheus.Counter
	httpStatus   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunebox_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tunebox_login_fail_total",
			Help: "ログイン失敗の合計数（理由別）",
		}, []string{"reason"}),
		tokenRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunebox_token_refresh_total",
			Help: "トークンリフレッシュ成功の合計数",
		}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunebox_upload_total",
			Help: "ファイルアップロード成功の合計数",
		}),
		uploadFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tunebox_upload_fail_total",
			Help: "ファイルアップロード失敗の合計数（理由別）",
		}, []string{"reason"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunebox_upload_bytes_total",
			Help: "アップロードされたファイルの合計バイト数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tunebox_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.tokenRefresh,
		c.uploads,
		c.uploadFail,
		c.uploadBytes,
		c.httpStatus,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordTokenRefresh はトークンリフレッシュ成功を記録する。
func (c *Collector) RecordTokenRefresh() {
	c.tokenRefresh.Inc()
}

// RecordUpload はファイルアップロード成功を記録する。
func (c *Collector) RecordUpload() {
	c.uploads.Inc()
}

// RecordUploadFailure はファイルアップロード失敗を記録する。
func (c *Collector) RecordUploadFailure(reason string) {
	c.uploadFail.WithLabelValues(reason).Inc()
}

// RecordUploadBytes はアップロードされたバイト数を記録する。
func (c *Collector) RecordUploadBytes(size int64) {
	c.uploadBytes.Add(float64(size))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
