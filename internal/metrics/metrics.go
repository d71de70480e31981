// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 予約・登録結果のラベル値
const (
	ResultCreated   = "created"
	ResultExisting  = "existing"
	ResultSlotTaken = "slot_taken"
	ResultNotFound  = "not_found"
	ResultInvalid   = "invalid"
	ResultForbidden = "forbidden"
	ResultError     = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// Booking Writerと統計ワーカーから利用する。
type MetricsCollector interface {
	RecordBooking(result string)
	RecordRegistration(result string)
	RecordSchedulePublished(entries int)
	SetFreeSlots(counts map[string]int)
	RecordStatsRefresh(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	bookings        *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	scheduleEntries prometheus.Counter
	freeSlots       *prometheus.GaugeVec
	statsLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonbook_bookings_total",
			Help: "予約リクエストの結果別件数",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonbook_registrations_total",
			Help: "マスター登録リクエストの結果別件数",
		}, []string{"result"}),
		scheduleEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salonbook_schedule_entries_published_total",
			Help: "公開されたスケジュール（日付単位）の合計数",
		}),
		freeSlots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "salonbook_free_slots",
			Help: "マスターごとの空き枠数",
		}, []string{"master_id"}),
		statsLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salonbook_stats_refresh_seconds",
			Help:    "空き枠集計にかかった時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.bookings,
		c.registrations,
		c.scheduleEntries,
		c.freeSlots,
		c.statsLatency,
	)

	return c
}

// RecordBooking は予約リクエストの結果を記録する。
func (c *Collector) RecordBooking(result string) {
	c.bookings.WithLabelValues(result).Inc()
}

// RecordRegistration はマスター登録リクエストの結果を記録する。
func (c *Collector) RecordRegistration(result string) {
	c.registrations.WithLabelValues(result).Inc()
}

// RecordSchedulePublished は公開したスケジュールの件数を記録する。
func (c *Collector) RecordSchedulePublished(entries int) {
	c.scheduleEntries.Add(float64(entries))
}

// SetFreeSlots は空き枠数のゲージを置き換える。
// countsに含まれないマスターの系列は削除する。
func (c *Collector) SetFreeSlots(counts map[string]int) {
	c.freeSlots.Reset()
	for masterID, n := range counts {
		c.freeSlots.WithLabelValues(masterID).Set(float64(n))
	}
}

// RecordStatsRefresh は空き枠集計の所要時間を記録する。
func (c *Collector) RecordStatsRefresh(duration time.Duration) {
	c.statsLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
