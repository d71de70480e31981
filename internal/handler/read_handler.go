package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/salonbook/internal/model"
)

// MasterLister はマスター一覧の取得インターフェース。
type MasterLister interface {
	List(ctx context.Context) ([]*model.Master, error)
}

// SlotsService は空き枠照会のサービスインターフェース。
type SlotsService interface {
	SlotsForMaster(ctx context.Context, masterID string) ([]model.DaySlots, error)
}

// OwnerBookingLister はマスター本人向けの予約一覧取得インターフェース。
type OwnerBookingLister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error)
}

// HealthChecker はストレージの疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// ReadHandler はWebアプリ向け読み取りAPIのHTTPハンドラー。
type ReadHandler struct {
	masters  MasterLister
	slots    SlotsService
	bookings OwnerBookingLister
	health   HealthChecker
}

// NewReadHandler はReadHandlerを生成する。
func NewReadHandler(masters MasterLister, slots SlotsService, bookings OwnerBookingLister, health HealthChecker) *ReadHandler {
	return &ReadHandler{
		masters:  masters,
		slots:    slots,
		bookings: bookings,
		health:   health,
	}
}

// masterResponse はマスター一覧の要素。
type masterResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	PhotoURL string   `json:"photo_url"`
	Services []string `json:"services"`
}

// slotResponse は1枠分の空き状況。
type slotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// bookingResponse はマスター向け予約一覧の要素。
type bookingResponse struct {
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Service     string `json:"service,omitempty"`
}

// ListMasters はマスター一覧を返す。
// GET /masters
func (h *ReadHandler) ListMasters(w http.ResponseWriter, r *http.Request) {
	masters, err := h.masters.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]masterResponse, 0, len(masters))
	for _, m := range masters {
		services := m.Services
		if services == nil {
			services = []string{}
		}
		resp = append(resp, masterResponse{
			ID:       m.ID,
			Name:     m.Name,
			PhotoURL: m.PhotoURL,
			Services: services,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// AvailableSlots はマスターの日付ごとの空き状況を返す。
// GET /available-slots/{master_id}
//
// レスポンスは日付をキーとするオブジェクトで、各日付の枠は公開時の順序を保つ。
func (h *ReadHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	masterID := chi.URLParam(r, "master_id")

	days, err := h.slots.SlotsForMaster(r.Context(), masterID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make(map[string][]slotResponse, len(days))
	for _, day := range days {
		slots := make([]slotResponse, len(day.Slots))
		for i, s := range day.Slots {
			slots[i] = slotResponse{Time: s.Time, Available: s.Available}
		}
		resp[day.Date] = slots
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListBookings はowner_idに紐付くマスターの予約一覧を返す。
// GET /bookings?owner_id=...
func (h *ReadHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		handleServiceError(w, model.NewInvalidInputError("owner_id は必須です"))
		return
	}

	bookings, err := h.bookings.ListByOwner(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, bookingResponse{
			ClientName:  b.ClientName,
			ClientPhone: b.ClientPhone,
			Date:        b.Date,
			Time:        b.Time,
			Service:     b.Service,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health はストレージへの疎通を確認する。
// GET /health
func (h *ReadHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.health.PingContext(ctx); err != nil {
		slog.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
