package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/salonbook/internal/metrics"
	"github.com/hitoshi/salonbook/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	BotToken          string

	// 読み取り
	Masters       MasterLister
	Slots         SlotsService
	OwnerBookings OwnerBookingLister
	HealthChecker HealthChecker

	// 書き込み
	Writer BookingWriter

	// メトリクス。nilの場合は/metricsを公開しない。
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RateLimit(Read/Ingest) → BotToken(Ingestのみ)
//
// 読み取りAPIはWebアプリの互換のため / と /api の両方に公開する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	readHandler := NewReadHandler(deps.Masters, deps.Slots, deps.OwnerBookings, deps.HealthChecker)
	webAppHandler := NewWebAppHandler(deps.Writer)

	// --- 監視系（レート制限なし） ---
	r.Get("/health", readHandler.Health)
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	readRoutes := func(r chi.Router) {
		r.Use(deps.RateLimiter.ReadMiddleware())
		r.Get("/masters", readHandler.ListMasters)
		r.Get("/available-slots/{master_id}", readHandler.AvailableSlots)
		r.Get("/bookings", readHandler.ListBookings)
	}

	// --- 読み取りAPI ---
	r.Group(readRoutes)
	r.Route("/api", func(r chi.Router) {
		r.Group(readRoutes)
	})

	// --- ボット経由の書き込み ---
	// ミドルウェアスタック: RateLimit(Ingest) → BotToken
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.IngestMiddleware())
		r.Use(middleware.NewBotTokenMiddleware(deps.BotToken))

		r.Post("/webapp-data", webAppHandler.Submit)
		r.Post("/webapp-data/schedule", webAppHandler.PublishSchedule)
	})

	return r
}
