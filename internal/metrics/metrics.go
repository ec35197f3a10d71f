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
// Discordクライアントやサービス層から利用する。
type MetricsCollector interface {
	RecordDiscordRequest(endpoint string, statusCode int)
	RecordDiscordLatency(endpoint string, duration time.Duration)
	RecordTokenRefresh(outcome string)
	RecordChatbotRequest(outcome string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	discordRequests *prometheus.CounterVec
	discordLatency  *prometheus.HistogramVec
	tokenRefresh    *prometheus.CounterVec
	chatbotRequests *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		discordRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flamey_discord_api_requests_total",
			Help: "Discord API呼び出しのエンドポイント・ステータス別合計数",
		}, []string{"endpoint", "status_code"}),
		discordLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flamey_discord_api_latency_seconds",
			Help:    "Discord API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flamey_token_refresh_total",
			Help: "トークンリフレッシュの結果別合計数",
		}, []string{"outcome"}),
		chatbotRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flamey_chatbot_requests_total",
			Help: "チャットボット応答生成の結果別合計数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.discordRequests,
		c.discordLatency,
		c.tokenRefresh,
		c.chatbotRequests,
	)

	return c
}

// RecordDiscordRequest はDiscord API呼び出しの結果を記録する。
func (c *Collector) RecordDiscordRequest(endpoint string, statusCode int) {
	c.discordRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// RecordDiscordLatency はDiscord API呼び出しのレイテンシを記録する。
func (c *Collector) RecordDiscordLatency(endpoint string, duration time.Duration) {
	c.discordLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordTokenRefresh はトークンリフレッシュの結果を記録する。
// outcomeは "success" または "failure"。
func (c *Collector) RecordTokenRefresh(outcome string) {
	c.tokenRefresh.WithLabelValues(outcome).Inc()
}

// RecordChatbotRequest はチャットボット応答生成の結果を記録する。
func (c *Collector) RecordChatbotRequest(outcome string) {
	c.chatbotRequests.WithLabelValues(outcome).Inc()
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
