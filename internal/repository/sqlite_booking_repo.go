package repository

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/hitoshi/salonbook/internal/model"
)

// SQLiteBookingRepo はSQLiteを使用した予約リポジトリ。
type SQLiteBookingRepo struct {
	pool *sqlitex.Pool
}

const sqliteBookingColumns = `b.id, b.master_id, b.client_name, b.client_phone, b.date, b.time, b.service, b.created_at`

// Create は予約を作成する。
// UNIQUE(master_id, date, time)違反はErrSlotTaken、外部キー違反はErrMasterNotFoundに変換する。
func (r *SQLiteBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO bookings (id, master_id, client_name, client_phone, date, time, service, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				booking.ID, booking.MasterID, booking.ClientName, booking.ClientPhone,
				booking.Date, booking.Time, booking.Service, formatSQLiteTime(booking.CreatedAt),
			},
		})
	switch {
	case err == nil:
		return nil
	case isSQLiteConstraint(err, sqlite.ResultConstraintUnique):
		return ErrSlotTaken
	case isSQLiteConstraint(err, sqlite.ResultConstraintForeignKey):
		return ErrMasterNotFound
	default:
		return fmt.Errorf("予約の作成に失敗しました: %w", err)
	}
}

// ListByMaster はマスターの予約を (date, time) 昇順で返す。
func (r *SQLiteBookingRepo) ListByMaster(ctx context.Context, masterID string) ([]*model.Booking, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	return sqliteListBookings(conn,
		`SELECT `+sqliteBookingColumns+` FROM bookings b
		 WHERE b.master_id = ?
		 ORDER BY b.date ASC, b.time ASC`,
		masterID,
	)
}

// ListByOwner はowner_idに紐付くマスターの予約を (date, time) 昇順で返す。
func (r *SQLiteBookingRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	return sqliteListBookings(conn,
		`SELECT `+sqliteBookingColumns+` FROM bookings b
		 JOIN masters m ON m.id = b.master_id
		 WHERE m.owner_id = ?
		 ORDER BY b.date ASC, b.time ASC`,
		ownerID,
	)
}

func sqliteListBookings(conn *sqlite.Conn, query string, args ...any) ([]*model.Booking, error) {
	bookings := []*model.Booking{}
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			createdAt, err := parseSQLiteTime(stmt.ColumnText(7))
			if err != nil {
				return fmt.Errorf("failed to parse created_at: %w", err)
			}
			bookings = append(bookings, &model.Booking{
				ID:          stmt.ColumnText(0),
				MasterID:    stmt.ColumnText(1),
				ClientName:  stmt.ColumnText(2),
				ClientPhone: stmt.ColumnText(3),
				Date:        stmt.ColumnText(4),
				Time:        stmt.ColumnText(5),
				Service:     stmt.ColumnText(6),
				CreatedAt:   createdAt,
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	return bookings, nil
}

// compile-time interface check
var _ BookingRepository = (*SQLiteBookingRepo)(nil)
