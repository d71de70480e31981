// Package booking は予約とマスター登録の書き込みを担うドメインロジックを提供する。
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/salonbook/internal/metrics"
	"github.com/hitoshi/salonbook/internal/model"
	"github.com/hitoshi/salonbook/internal/repository"
	"github.com/hitoshi/salonbook/internal/security"
)

// BookingRequest はWebアプリから送られる予約内容。
type BookingRequest struct {
	MasterID string
	Name     string
	Phone    string
	Date     string
	Time     string
	Service  string // 任意
}

// ScheduleInput は1日分の公開スケジュール。
type ScheduleInput struct {
	Date  string
	Times []string
}

// RegistrationRequest はマスター登録の内容。
type RegistrationRequest struct {
	OwnerID  string
	Name     string
	PhotoURL string
	Services []string
	Schedule []ScheduleInput
}

// RegistrationResult は登録結果。Createdは今回の呼び出しでマスターを作成した場合にtrue。
type RegistrationResult struct {
	MasterID string
	Created  bool
}

// Writer は予約・登録・スケジュール公開の書き込み経路。
// 二重予約とowner_idの重複はストレージの一意制約で防ぎ、Writer自身はロックを持たない。
type Writer struct {
	masterRepo   repository.MasterRepository
	scheduleRepo repository.ScheduleRepository
	bookingRepo  repository.BookingRepository
	allowList    *security.AllowList
	sanitizer    security.TextSanitizer
	metrics      metrics.MetricsCollector
	now          func() time.Time
}

// NewWriter はWriterの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewWriter(
	masterRepo repository.MasterRepository,
	scheduleRepo repository.ScheduleRepository,
	bookingRepo repository.BookingRepository,
	allowList *security.AllowList,
	sanitizer security.TextSanitizer,
	collector metrics.MetricsCollector,
) *Writer {
	return &Writer{
		masterRepo:   masterRepo,
		scheduleRepo: scheduleRepo,
		bookingRepo:  bookingRepo,
		allowList:    allowList,
		sanitizer:    sanitizer,
		metrics:      collector,
		now:          time.Now,
	}
}

// Book は予約を作成する。
// 必須5項目のいずれかが空の場合はINVALID_INPUTで何も書き込まない。
// 同じ枠が予約済みの場合はSLOT_TAKENを返す。これは予約の受付不可であり、致命的なエラーではない。
func (w *Writer) Book(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	masterID := strings.TrimSpace(req.MasterID)
	name := w.sanitizer.Sanitize(req.Name)
	phone := w.sanitizer.Sanitize(req.Phone)
	date := strings.TrimSpace(req.Date)
	slot := strings.TrimSpace(req.Time)
	service := w.sanitizer.Sanitize(req.Service)

	if missing := missingFields(map[string]string{
		"master_id": masterID,
		"name":      name,
		"phone":     phone,
		"date":      date,
		"time":      slot,
	}); missing != "" {
		w.recordBooking(metrics.ResultInvalid)
		return nil, model.NewInvalidInputError(missing + " は必須です")
	}

	if service != "" {
		master, err := w.masterRepo.FindByID(ctx, masterID)
		if err != nil {
			w.recordBooking(metrics.ResultError)
			return nil, fmt.Errorf("マスターの取得に失敗しました: %w", err)
		}
		if master == nil {
			w.recordBooking(metrics.ResultNotFound)
			return nil, model.NewMasterNotFoundError(masterID)
		}
		if !master.HasService(service) {
			w.recordBooking(metrics.ResultInvalid)
			return nil, model.NewInvalidInputError(fmt.Sprintf("このマスターは「%s」を提供していません", service))
		}
	}

	booking := &model.Booking{
		ID:          uuid.New().String(),
		MasterID:    masterID,
		ClientName:  name,
		ClientPhone: phone,
		Date:        date,
		Time:        slot,
		Service:     service,
		CreatedAt:   w.now(),
	}

	err := w.bookingRepo.Create(ctx, booking)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrSlotTaken):
		w.recordBooking(metrics.ResultSlotTaken)
		slog.Info("予約枠は既に埋まっています",
			slog.String("master_id", masterID),
			slog.String("date", date),
			slog.String("time", slot),
		)
		return nil, model.NewSlotTakenError(date, slot)
	case errors.Is(err, repository.ErrMasterNotFound):
		w.recordBooking(metrics.ResultNotFound)
		return nil, model.NewMasterNotFoundError(masterID)
	default:
		w.recordBooking(metrics.ResultError)
		return nil, fmt.Errorf("予約の保存に失敗しました: %w", err)
	}

	w.recordBooking(metrics.ResultCreated)
	slog.Info("予約を受け付けました",
		slog.String("booking_id", booking.ID),
		slog.String("master_id", masterID),
		slog.String("date", date),
		slog.String("time", slot),
	)
	return booking, nil
}

// Register はマスターを登録する。
// フロー: 入力検証 → 許可リスト確認 → 既存マスター検索 → 作成（競合時は再検索） → スケジュール公開
//
// 同じowner_idでの再登録は冪等で、既存のマスターIDを返し、スケジュールは既存分にマージする。
// スケジュール公開の途中でストレージエラーが起きた場合、作成済みのマスターは残り、
// 残りのスケジュールは公開しない。
func (w *Writer) Register(ctx context.Context, req RegistrationRequest) (*RegistrationResult, error) {
	ownerID := strings.TrimSpace(req.OwnerID)
	name := w.sanitizer.Sanitize(req.Name)
	photoURL := strings.TrimSpace(req.PhotoURL)

	if missing := missingFields(map[string]string{
		"owner_id": ownerID,
		"name":     name,
	}); missing != "" {
		w.recordRegistration(metrics.ResultInvalid)
		return nil, model.NewInvalidInputError(missing + " は必須です")
	}
	if photoURL != "" {
		if err := security.ValidatePhotoURL(photoURL); err != nil {
			w.recordRegistration(metrics.ResultInvalid)
			return nil, model.NewInvalidInputError("photo_url が不正です")
		}
	}
	schedule, err := normalizeSchedule(req.Schedule)
	if err != nil {
		w.recordRegistration(metrics.ResultInvalid)
		return nil, err
	}

	if !w.allowList.Allows(ownerID) {
		w.recordRegistration(metrics.ResultForbidden)
		slog.Warn("許可リストにないアカウントからの登録を拒否しました", slog.String("owner_id", ownerID))
		return nil, model.NewForbiddenError()
	}

	existing, err := w.masterRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		w.recordRegistration(metrics.ResultError)
		return nil, fmt.Errorf("マスターの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return w.mergeIntoExisting(ctx, existing, schedule)
	}

	master := &model.Master{
		ID:        uuid.New().String(),
		OwnerID:   &ownerID,
		Name:      name,
		PhotoURL:  photoURL,
		Services:  w.cleanServices(req.Services),
		CreatedAt: w.now(),
	}

	err = w.masterRepo.Create(ctx, master)
	if errors.Is(err, repository.ErrOwnerConflict) {
		// 同じowner_idの登録が並行して先に確定した
		existing, err = w.masterRepo.FindByOwner(ctx, ownerID)
		if err != nil {
			w.recordRegistration(metrics.ResultError)
			return nil, fmt.Errorf("マスターの再検索に失敗しました: %w", err)
		}
		if existing == nil {
			w.recordRegistration(metrics.ResultError)
			slog.Error("owner_idの一意制約違反後にマスターが見つかりません",
				slog.String("owner_id", ownerID),
			)
			return nil, model.NewOwnerConflictError()
		}
		return w.mergeIntoExisting(ctx, existing, schedule)
	}
	if err != nil {
		w.recordRegistration(metrics.ResultError)
		return nil, fmt.Errorf("マスターの作成に失敗しました: %w", err)
	}

	slog.Info("マスターを登録しました",
		slog.String("master_id", master.ID),
		slog.String("owner_id", ownerID),
	)

	for i, entry := range schedule {
		if err := w.scheduleRepo.Publish(ctx, master.ID, entry.Date, entry.Times); err != nil {
			w.recordRegistration(metrics.ResultError)
			w.recordSchedule(i)
			return nil, fmt.Errorf("スケジュールの公開に失敗しました (date=%s): %w", entry.Date, err)
		}
	}
	w.recordSchedule(len(schedule))
	w.recordRegistration(metrics.ResultCreated)

	return &RegistrationResult{MasterID: master.ID, Created: true}, nil
}

// PublishSchedule はowner_idに紐付くマスターのスケジュールを日付単位で置き換える。
// 公開した日付数を返す。
func (w *Writer) PublishSchedule(ctx context.Context, ownerID string, entries []ScheduleInput) (int, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return 0, model.NewInvalidInputError("owner_id は必須です")
	}
	schedule, err := normalizeSchedule(entries)
	if err != nil {
		return 0, err
	}
	if len(schedule) == 0 {
		return 0, model.NewInvalidInputError("公開する時刻がありません")
	}

	if !w.allowList.Allows(ownerID) {
		slog.Warn("許可リストにないアカウントからのスケジュール公開を拒否しました", slog.String("owner_id", ownerID))
		return 0, model.NewForbiddenError()
	}

	master, err := w.masterRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("マスターの検索に失敗しました: %w", err)
	}
	if master == nil {
		return 0, model.NewMasterNotFoundError(ownerID)
	}

	for i, entry := range schedule {
		if err := w.scheduleRepo.Publish(ctx, master.ID, entry.Date, entry.Times); err != nil {
			w.recordSchedule(i)
			return i, fmt.Errorf("スケジュールの公開に失敗しました (date=%s): %w", entry.Date, err)
		}
	}
	w.recordSchedule(len(schedule))

	slog.Info("スケジュールを公開しました",
		slog.String("master_id", master.ID),
		slog.Int("dates", len(schedule)),
	)
	return len(schedule), nil
}

// mergeIntoExisting は既存マスターへの再登録として、スケジュールをマージする。
func (w *Writer) mergeIntoExisting(ctx context.Context, master *model.Master, schedule []ScheduleInput) (*RegistrationResult, error) {
	for i, entry := range schedule {
		if err := w.scheduleRepo.Merge(ctx, master.ID, entry.Date, entry.Times); err != nil {
			w.recordRegistration(metrics.ResultError)
			w.recordSchedule(i)
			return nil, fmt.Errorf("スケジュールのマージに失敗しました (date=%s): %w", entry.Date, err)
		}
	}
	w.recordSchedule(len(schedule))
	w.recordRegistration(metrics.ResultExisting)

	slog.Info("既存マスターへの再登録を受け付けました",
		slog.String("master_id", master.ID),
		slog.Int("dates", len(schedule)),
	)
	return &RegistrationResult{MasterID: master.ID, Created: false}, nil
}

// cleanServices はサービス名をサニタイズし、空と重複を除く。順序は維持する。
func (w *Writer) cleanServices(services []string) []string {
	seen := make(map[string]struct{}, len(services))
	result := make([]string, 0, len(services))
	for _, s := range services {
		s = w.sanitizer.Sanitize(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}
	return result
}

// normalizeSchedule は時刻を正規化し、有効な時刻を持たない日付を除く。
// 同じ日付が複数回現れた場合は最初の位置に1件へまとめ、時刻は出現順に重複なく連結する。
// 時刻があるのに日付が空のエントリはINVALID_INPUTとする。
func normalizeSchedule(entries []ScheduleInput) ([]ScheduleInput, error) {
	result := make([]ScheduleInput, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		times := model.NormalizeTimes(entry.Times)
		if len(times) == 0 {
			continue
		}
		date := strings.TrimSpace(entry.Date)
		if date == "" {
			return nil, model.NewInvalidInputError("schedule の date は必須です")
		}
		if i, ok := index[date]; ok {
			result[i].Times = model.MergeTimes(result[i].Times, times)
			continue
		}
		index[date] = len(result)
		result = append(result, ScheduleInput{Date: date, Times: model.MergeTimes(nil, times)})
	}
	return result, nil
}

// missingFields は空の項目名をカンマ区切りで返す。順序は固定。
func missingFields(fields map[string]string) string {
	order := []string{"master_id", "owner_id", "name", "phone", "date", "time"}
	var missing []string
	for _, key := range order {
		if v, ok := fields[key]; ok && v == "" {
			missing = append(missing, key)
		}
	}
	return strings.Join(missing, ", ")
}

func (w *Writer) recordBooking(result string) {
	if w.metrics != nil {
		w.metrics.RecordBooking(result)
	}
}

func (w *Writer) recordRegistration(result string) {
	if w.metrics != nil {
		w.metrics.RecordRegistration(result)
	}
}

func (w *Writer) recordSchedule(entries int) {
	if w.metrics != nil && entries > 0 {
		w.metrics.RecordSchedulePublished(entries)
	}
}
