package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore はPostgreSQLを使用したRecord Store。
// *sql.DBはコネクションプールであり、複数のgoroutineから共有してよい。
type PostgresStore struct {
	db        *sql.DB
	masters   *PostgresMasterRepo
	schedules *PostgresScheduleRepo
	bookings  *PostgresBookingRepo
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:        db,
		masters:   NewPostgresMasterRepo(db),
		schedules: NewPostgresScheduleRepo(db),
		bookings:  NewPostgresBookingRepo(db),
	}
}

// Masters はマスターリポジトリを返す。
func (s *PostgresStore) Masters() MasterRepository { return s.masters }

// Schedules はスケジュールリポジトリを返す。
func (s *PostgresStore) Schedules() ScheduleRepository { return s.schedules }

// Bookings は予約リポジトリを返す。
func (s *PostgresStore) Bookings() BookingRepository { return s.bookings }

// AvailabilitySnapshot はREPEATABLE READの読み取り専用トランザクションで
// マスター、スケジュール、予約を取得する。3つのSELECTは同一スナップショットを参照する。
func (s *PostgresStore) AvailabilitySnapshot(ctx context.Context, masterID string) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	master, err := findMasterByID(ctx, tx, masterID)
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, nil
	}

	schedule, err := listSchedule(ctx, tx, masterID)
	if err != nil {
		return nil, err
	}

	bookings, err := listBookings(ctx, tx,
		`SELECT `+bookingColumns+` FROM bookings b
		 WHERE b.master_id = $1
		 ORDER BY b.date ASC, b.time ASC`,
		masterID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	return &Snapshot{Master: master, Schedule: schedule, Bookings: bookings}, nil
}

// PingContext はデータベースへの疎通を確認する。
func (s *PostgresStore) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はコネクションプールを閉じる。
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
