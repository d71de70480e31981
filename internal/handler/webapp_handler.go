package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/salonbook/internal/booking"
	"github.com/hitoshi/salonbook/internal/model"
)

// maxWebAppBodyBytes はWebアプリから受け付けるリクエストボディの上限。
const maxWebAppBodyBytes = 64 << 10

// BookingWriter は予約・登録の書き込みサービスインターフェース。
type BookingWriter interface {
	Book(ctx context.Context, req booking.BookingRequest) (*model.Booking, error)
	Register(ctx context.Context, req booking.RegistrationRequest) (*booking.RegistrationResult, error)
	PublishSchedule(ctx context.Context, ownerID string, entries []booking.ScheduleInput) (int, error)
}

// WebAppHandler はボット経由で転送されるWebアプリのイベントを受け付ける。
type WebAppHandler struct {
	writer BookingWriter
}

// NewWebAppHandler はWebAppHandlerを生成する。
func NewWebAppHandler(writer BookingWriter) *WebAppHandler {
	return &WebAppHandler{writer: writer}
}

// flexibleID は文字列と数値のどちらで送られても受け付けるID。
// TelegramのユーザーIDは数値で届く。
type flexibleID string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

// scheduleEntryRequest は1日分のスケジュール。
type scheduleEntryRequest struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// webAppDataRequest はWebアプリから送られるJSON。
// is_master_registrationで登録と予約を判別する。
type webAppDataRequest struct {
	IsMasterRegistration bool `json:"is_master_registration"`

	// 登録
	OwnerID  flexibleID             `json:"owner_id"`
	PhotoURL string                 `json:"photo_url"`
	Services []string               `json:"services"`
	Schedule []scheduleEntryRequest `json:"schedule"`

	// 予約
	MasterID flexibleID `json:"master_id"`
	Date     string     `json:"date"`
	Time     string     `json:"time"`
	Service  string     `json:"service"`
	Phone    string     `json:"phone"`

	Name string `json:"name"`
}

// publishScheduleRequest はスケジュール公開リクエスト。
type publishScheduleRequest struct {
	OwnerID  flexibleID             `json:"owner_id"`
	Schedule []scheduleEntryRequest `json:"schedule"`
}

// webAppResponse はボットがユーザーに返信するための結果。
type webAppResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Action    string `json:"action,omitempty"`
	MasterID  string `json:"master_id,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	Entries   *int   `json:"entries,omitempty"`
}

// Submit はWebアプリのイベントを登録または予約として処理する。
// POST /webapp-data
func (h *WebAppHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req webAppDataRequest
	if !decodeWebAppBody(w, r, &req) {
		return
	}

	if req.IsMasterRegistration {
		h.register(w, r, &req)
		return
	}
	h.book(w, r, &req)
}

func (h *WebAppHandler) register(w http.ResponseWriter, r *http.Request, req *webAppDataRequest) {
	result, err := h.writer.Register(r.Context(), booking.RegistrationRequest{
		OwnerID:  string(req.OwnerID),
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Services: req.Services,
		Schedule: toScheduleInputs(req.Schedule),
	})
	if err != nil {
		writeWebAppError(w, err)
		return
	}

	if result.Created {
		writeJSON(w, http.StatusCreated, webAppResponse{
			OK:       true,
			Message:  "マスター登録が完了しました。",
			MasterID: result.MasterID,
		})
		return
	}
	writeJSON(w, http.StatusOK, webAppResponse{
		OK:       true,
		Message:  "登録済みのマスターのスケジュールを更新しました。",
		MasterID: result.MasterID,
	})
}

func (h *WebAppHandler) book(w http.ResponseWriter, r *http.Request, req *webAppDataRequest) {
	created, err := h.writer.Book(r.Context(), booking.BookingRequest{
		MasterID: string(req.MasterID),
		Name:     req.Name,
		Phone:    req.Phone,
		Date:     req.Date,
		Time:     req.Time,
		Service:  req.Service,
	})
	if err != nil {
		writeWebAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, webAppResponse{
		OK:        true,
		Message:   fmt.Sprintf("予約が完了しました: %s %s", created.Date, created.Time),
		MasterID:  created.MasterID,
		BookingID: created.ID,
	})
}

// PublishSchedule はマスター本人のスケジュールを公開する。
// POST /webapp-data/schedule
func (h *WebAppHandler) PublishSchedule(w http.ResponseWriter, r *http.Request) {
	var req publishScheduleRequest
	if !decodeWebAppBody(w, r, &req) {
		return
	}

	n, err := h.writer.PublishSchedule(r.Context(), string(req.OwnerID), toScheduleInputs(req.Schedule))
	if err != nil {
		writeWebAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, webAppResponse{
		OK:      true,
		Message: "スケジュールを公開しました。",
		Entries: &n,
	})
}

// decodeWebAppBody はリクエストボディをデコードする。失敗時はエラーレスポンスを書き込みfalseを返す。
func decodeWebAppBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebAppBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeWebAppError(w, model.NewInvalidInputError("リクエストボディのJSONが不正です"))
		return false
	}
	return true
}

// writeWebAppError はエラーをボット向けの結果形式で書き込む。
func writeWebAppError(w http.ResponseWriter, err error) {
	apiErr, status := toAPIError(err)
	writeJSON(w, status, webAppResponse{
		OK:      false,
		Message: apiErr.Message,
		Code:    apiErr.Code,
		Action:  apiErr.Action,
	})
}

func toScheduleInputs(entries []scheduleEntryRequest) []booking.ScheduleInput {
	if len(entries) == 0 {
		return nil
	}
	out := make([]booking.ScheduleInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, booking.ScheduleInput{
			Date:  strings.TrimSpace(e.Date),
			Times: e.Times,
		})
	}
	return out
}
