// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// サービス層やミドルウェアから利用する。
type Recorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordSessionIssued()
	RecordGrantOutcome(outcome string)
	RecordRevokeOutcome(outcome string)
	RecordInvariantViolation()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess       prometheus.Counter
	loginFail          *prometheus.CounterVec
	sessionsIssued     prometheus.Counter
	grantOutcome       *prometheus.CounterVec
	revokeOutcome      *prometheus.CounterVec
	invariantViolation prometheus.Counter
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelman_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelman_login_fail_total",
			Help: "理由別のログイン失敗数",
		}, []string{"reason"}),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelman_sessions_issued_total",
			Help: "発行されたセッショントークンの合計数",
		}),
		grantOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelman_grant_total",
			Help: "結果別の所有権付与操作数",
		}, []string{"outcome"}),
		revokeOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelman_revoke_total",
			Help: "結果別の所有権剥奪操作数",
		}, []string{"outcome"}),
		invariantViolation: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelman_invariant_violation_total",
			Help: "一意性不変条件の破れの検出数（アラート対象）",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.sessionsIssued,
		c.grantOutcome,
		c.revokeOutcome,
		c.invariantViolation,
		c.httpStatus,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure は理由付きでログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordSessionIssued はセッショントークンの発行を記録する。
func (c *Collector) RecordSessionIssued() {
	c.sessionsIssued.Inc()
}

// RecordGrantOutcome は付与操作の結果を記録する。
func (c *Collector) RecordGrantOutcome(outcome string) {
	c.grantOutcome.WithLabelValues(outcome).Inc()
}

// RecordRevokeOutcome は剥奪操作の結果を記録する。
func (c *Collector) RecordRevokeOutcome(outcome string) {
	c.revokeOutcome.WithLabelValues(outcome).Inc()
}

// RecordInvariantViolation は一意性不変条件の破れを記録する。
// このカウンタの増加は監視側でアラートの対象とする。
func (c *Collector) RecordInvariantViolation() {
	c.invariantViolation.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
