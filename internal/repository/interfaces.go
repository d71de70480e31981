// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/salonbook/internal/model"
)

// ストレージ層が返す既知のエラー。呼び出し側はerrors.Isで判定する。
var (
	// ErrSlotTaken は (master_id, date, time) の予約が既に存在することを示す。
	ErrSlotTaken = errors.New("slot already booked")
	// ErrMasterNotFound は参照先のマスターが存在しないことを示す。
	ErrMasterNotFound = errors.New("master not found")
	// ErrOwnerConflict はowner_idが既に別のマスターに紐付いていることを示す。
	ErrOwnerConflict = errors.New("owner already bound to a master")
)

// MasterRepository はマスターデータの永続化インターフェース。
type MasterRepository interface {
	// Create はマスターを作成する。
	// OwnerIDが既に紐付いている場合はErrOwnerConflictを返す。
	Create(ctx context.Context, master *model.Master) error

	// FindByID は指定IDのマスターを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Master, error)

	// FindByOwner はowner_idに紐付くマスターを取得する。見つからない場合はnilを返す。
	FindByOwner(ctx context.Context, ownerID string) (*model.Master, error)

	// List は全マスターを登録順に返す。
	List(ctx context.Context) ([]*model.Master, error)
}

// ScheduleRepository は公開スケジュールの永続化インターフェース。
type ScheduleRepository interface {
	// Publish は (masterID, date) のスケジュールをUPSERTする。
	// timesは正規化され、結果が空の場合は何も書き込まない。
	Publish(ctx context.Context, masterID, date string, times []string) error

	// Merge は (masterID, date) の既存スケジュールに未登録の時刻を追加する。
	// 既存の時刻と順序は維持する。結果が空の場合は何も書き込まない。
	Merge(ctx context.Context, masterID, date string, times []string) error

	// ListByMaster はマスターのスケジュールを日付順に返す。
	ListByMaster(ctx context.Context, masterID string) ([]model.ScheduleEntry, error)
}

// BookingRepository は予約データの永続化インターフェース。
type BookingRepository interface {
	// Create は予約を作成する。
	// マスターが存在しない場合はErrMasterNotFound、
	// 同じ枠が予約済みの場合はErrSlotTakenを返す。
	Create(ctx context.Context, booking *model.Booking) error

	// ListByMaster はマスターの予約を (date, time) 昇順で返す。
	ListByMaster(ctx context.Context, masterID string) ([]*model.Booking, error)

	// ListByOwner はowner_idに紐付くマスターの予約を (date, time) 昇順で返す。
	// マスターが紐付いていない場合は空スライスを返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error)
}

// Snapshot は空き枠計算に使う、単一時点のマスター・スケジュール・予約の組。
type Snapshot struct {
	Master   *model.Master
	Schedule []model.ScheduleEntry
	Bookings []*model.Booking
}

// SnapshotReader は空き枠計算用の一貫したスナップショットを提供する。
type SnapshotReader interface {
	// AvailabilitySnapshot は1つの読み取りトランザクション内でマスター、
	// スケジュール、予約を取得する。マスターが存在しない場合はnilを返す。
	AvailabilitySnapshot(ctx context.Context, masterID string) (*Snapshot, error)
}

// HealthChecker はストレージの疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Store はRecord Store全体を表す。
// 同時に複数のgoroutineから利用してよい。競合する書き込みの直列化はStoreの責務。
type Store interface {
	Masters() MasterRepository
	Schedules() ScheduleRepository
	Bookings() BookingRepository
	SnapshotReader
	HealthChecker
	Close() error
}
