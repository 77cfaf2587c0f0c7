// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービス、認証ゲート、パスワードハッシュから利用する。
type MetricsCollector interface {
	RecordSignIn(result string)
	RecordGateDecision(decision string)
	ObserveHash(op string, d time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIn       *prometheus.CounterVec
	gateDecision *prometheus.CounterVec
	hashDuration *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keyhole_signin_attempts_total",
			Help: "結果別のサインイン試行数",
		}, []string{"result"}),
		gateDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keyhole_auth_gate_decisions_total",
			Help: "認証ゲートの判定結果別のリクエスト数",
		}, []string{"decision"}),
		hashDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keyhole_password_hash_duration_seconds",
			Help:    "パスワードハッシュ計算の所要時間（秒）",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.signIn,
		c.gateDecision,
		c.hashDuration,
	)

	return c
}

// RecordSignIn はサインイン試行の結果を記録する。
func (c *Collector) RecordSignIn(result string) {
	c.signIn.WithLabelValues(result).Inc()
}

// RecordGateDecision は認証ゲートの判定を記録する。
func (c *Collector) RecordGateDecision(decision string) {
	c.gateDecision.WithLabelValues(decision).Inc()
}

// ObserveHash はハッシュ計算（hash / verify）の所要時間を記録する。
func (c *Collector) ObserveHash(op string, d time.Duration) {
	c.hashDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
