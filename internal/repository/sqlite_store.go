package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/hitoshi/salonbook/internal/model"
)

// sqliteTimeLayout は created_at の保存形式。
// 桁数を固定し、文字列比較が時刻順と一致するようにする。
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore はSQLiteを使用したRecord Store。
// 書き込みはIMMEDIATEトランザクションで直列化され、読み取りはWALにより並行して行える。
type SQLiteStore struct {
	pool      *sqlitex.Pool
	masters   *SQLiteMasterRepo
	schedules *SQLiteScheduleRepo
	bookings  *SQLiteBookingRepo
}

// NewSQLiteStore はSQLiteStoreを生成する。poolの所有権はStoreに移る。
func NewSQLiteStore(pool *sqlitex.Pool) *SQLiteStore {
	return &SQLiteStore{
		pool:      pool,
		masters:   &SQLiteMasterRepo{pool: pool},
		schedules: &SQLiteScheduleRepo{pool: pool},
		bookings:  &SQLiteBookingRepo{pool: pool},
	}
}

// Masters はマスターリポジトリを返す。
func (s *SQLiteStore) Masters() MasterRepository { return s.masters }

// Schedules はスケジュールリポジトリを返す。
func (s *SQLiteStore) Schedules() ScheduleRepository { return s.schedules }

// Bookings は予約リポジトリを返す。
func (s *SQLiteStore) Bookings() BookingRepository { return s.bookings }

// AvailabilitySnapshot は1つのDEFERREDトランザクション内で3つのSELECTを実行する。
// WALモードでは最初のSELECT時点のスナップショットがトランザクション終了まで維持される。
func (s *SQLiteStore) AvailabilitySnapshot(ctx context.Context, masterID string) (snapshot *Snapshot, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer s.pool.Put(conn)

	endFn := sqlitex.Transaction(conn)
	defer endFn(&err)

	master, err := sqliteFindMaster(conn, `WHERE id = ?`, masterID)
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, nil
	}

	schedule, err := sqliteListSchedule(conn, masterID)
	if err != nil {
		return nil, err
	}

	bookings, err := sqliteListBookings(conn,
		`SELECT `+sqliteBookingColumns+` FROM bookings b
		 WHERE b.master_id = ?
		 ORDER BY b.date ASC, b.time ASC`,
		masterID,
	)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Master: master, Schedule: schedule, Bookings: bookings}, nil
}

// PingContext はコネクションを1本取得してクエリが通ることを確認する。
func (s *SQLiteStore) PingContext(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer s.pool.Put(conn)

	return sqlitex.ExecuteTransient(conn, "SELECT 1", nil)
}

// Close はコネクションプールを閉じる。
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

func isSQLiteConstraint(err error, code sqlite.ResultCode) bool {
	return err != nil && sqlite.ErrCode(err) == code
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStrings(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(raw string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, raw)
}

func sqliteListSchedule(conn *sqlite.Conn, masterID string) ([]model.ScheduleEntry, error) {
	entries := []model.ScheduleEntry{}
	err := sqlitex.Execute(conn,
		`SELECT master_id, date, times FROM schedule_entries
		 WHERE master_id = ?
		 ORDER BY date ASC`,
		&sqlitex.ExecOptions{
			Args: []any{masterID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				times, err := decodeStrings(stmt.ColumnText(2))
				if err != nil {
					return err
				}
				if len(times) == 0 {
					return nil
				}
				entries = append(entries, model.ScheduleEntry{
					MasterID: stmt.ColumnText(0),
					Date:     stmt.ColumnText(1),
					Times:    times,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("スケジュール一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// compile-time interface check
var _ Store = (*SQLiteStore)(nil)
