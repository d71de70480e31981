package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/salonbook/internal/model"
)

// PostgresBookingRepo はPostgreSQLを使用した予約リポジトリ。
type PostgresBookingRepo struct {
	db *sql.DB
}

// NewPostgresBookingRepo はPostgresBookingRepoを生成する。
func NewPostgresBookingRepo(db *sql.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: db}
}

// Create は予約を作成する。
// 二重予約の防止はUNIQUE(master_id, date, time)制約に任せる。
// 同じ枠への同時INSERTは後着側が一意制約違反となり、ErrSlotTakenに変換される。
func (r *PostgresBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (id, master_id, client_name, client_phone, date, time, service, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		booking.ID, booking.MasterID, booking.ClientName, booking.ClientPhone,
		booking.Date, booking.Time, booking.Service, booking.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, constraintBookingSlotUnique):
		return ErrSlotTaken
	case isForeignKeyViolation(err):
		return ErrMasterNotFound
	default:
		return fmt.Errorf("予約の作成に失敗しました: %w", err)
	}
}

// ListByMaster はマスターの予約を (date, time) 昇順で返す。
func (r *PostgresBookingRepo) ListByMaster(ctx context.Context, masterID string) ([]*model.Booking, error) {
	return listBookings(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings b
		 WHERE b.master_id = $1
		 ORDER BY b.date ASC, b.time ASC`,
		masterID,
	)
}

// ListByOwner はowner_idに紐付くマスターの予約を (date, time) 昇順で返す。
// マスターが紐付いていなければJOINが空になり、空スライスを返す。
func (r *PostgresBookingRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	return listBookings(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings b
		 JOIN masters m ON m.id = b.master_id
		 WHERE m.owner_id = $1
		 ORDER BY b.date ASC, b.time ASC`,
		ownerID,
	)
}

const bookingColumns = `b.id, b.master_id, b.client_name, b.client_phone, b.date, b.time, b.service, b.created_at`

func listBookings(ctx context.Context, q queryer, query string, args ...any) ([]*model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	bookings := []*model.Booking{}
	for rows.Next() {
		b := &model.Booking{}
		if err := rows.Scan(&b.ID, &b.MasterID, &b.ClientName, &b.ClientPhone, &b.Date, &b.Time, &b.Service, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("予約行の読み取りに失敗しました: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("予約一覧の走査に失敗しました: %w", err)
	}
	return bookings, nil
}

// compile-time interface check
var _ BookingRepository = (*PostgresBookingRepo)(nil)
