package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/salonbook/internal/booking"
	"github.com/hitoshi/salonbook/internal/metrics"
	"github.com/hitoshi/salonbook/internal/middleware"
	"github.com/hitoshi/salonbook/internal/model"
)

const testBotToken = "test-bot-token"

func newTestRouter(t *testing.T, writer BookingWriter, gatherer prometheus.Gatherer) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(30))
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		CORSAllowedOrigin: "*",
		RateLimiter:       rl,
		BotToken:          testBotToken,
		Masters: &mockMasterLister{
			listFn: func(ctx context.Context) ([]*model.Master, error) {
				return []*model.Master{{ID: "m1", Name: "Анна"}}, nil
			},
		},
		Slots:           &mockSlotsService{},
		OwnerBookings:   &mockOwnerBookingLister{},
		HealthChecker:   &mockHealthChecker{},
		Writer:          writer,
		MetricsGatherer: gatherer,
	})
}

func TestRouter_ReadRoutesUnderRootAndAPI(t *testing.T) {
	router := newTestRouter(t, &mockBookingWriter{}, nil)

	paths := []string{
		"/masters",
		"/api/masters",
		"/available-slots/m1",
		"/api/available-slots/m1",
		"/bookings?owner_id=1",
		"/api/bookings?owner_id=1",
		"/health",
	}

	for _, path := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouter_SecurityHeadersApplied(t *testing.T) {
	router := newTestRouter(t, &mockBookingWriter{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/masters", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("expected X-Content-Type-Options: nosniff, got %q", rec.Header().Get("X-Content-Type-Options"))
	}
}

func TestRouter_IngestRequiresBotToken(t *testing.T) {
	called := false
	router := newTestRouter(t, &mockBookingWriter{
		bookFn: func(ctx context.Context, req booking.BookingRequest) (*model.Booking, error) {
			called = true
			return &model.Booking{ID: "b1", MasterID: req.MasterID, Date: req.Date, Time: req.Time}, nil
		},
	}, nil)

	body := `{"master_id":"m1","date":"2026-01-20","time":"10:00","name":"a","phone":"b"}`

	// トークンなし
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webapp-data", strings.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if called {
		t.Fatal("writer should not be called without a valid token")
	}

	// 正しいトークン
	req := httptest.NewRequest(http.MethodPost, "/webapp-data", strings.NewReader(body))
	req.Header.Set(middleware.BotTokenHeader, testBotToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d: %s", rec.Code, rec.Body.String())
	}
	if !called {
		t.Error("writer should be called with a valid token")
	}
}

func TestRouter_ScheduleRoute(t *testing.T) {
	router := newTestRouter(t, &mockBookingWriter{
		publishFn: func(ctx context.Context, ownerID string, entries []booking.ScheduleInput) (int, error) {
			return len(entries), nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/webapp-data/schedule",
		strings.NewReader(`{"owner_id":"1","schedule":[{"date":"2026-01-20","times":["10:00"]}]}`))
	req.Header.Set(middleware.BotTokenHeader, testBotToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.RecordBooking(metrics.ResultCreated)

	router := newTestRouter(t, &mockBookingWriter{}, reg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "salonbook_bookings_total") {
		t.Error("metrics output should contain salonbook_bookings_total")
	}
}

func TestRouter_MetricsDisabledWithoutGatherer(t *testing.T) {
	router := newTestRouter(t, &mockBookingWriter{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, &mockBookingWriter{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/webapp-data", nil)
	req.Header.Set("Origin", "https://webapp.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Bot-Token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}
