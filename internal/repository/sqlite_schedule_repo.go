package repository

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/hitoshi/salonbook/internal/model"
)

// SQLiteScheduleRepo はSQLiteを使用したスケジュールリポジトリ。
type SQLiteScheduleRepo struct {
	pool *sqlitex.Pool
}

const sqliteUpsertSchedule = `INSERT INTO schedule_entries (master_id, date, times)
	 VALUES (?, ?, ?)
	 ON CONFLICT (master_id, date) DO UPDATE SET times = excluded.times`

// Publish は (masterID, date) のスケジュールをUPSERTする。
func (r *SQLiteScheduleRepo) Publish(ctx context.Context, masterID, date string, times []string) error {
	normalized := model.NormalizeTimes(times)
	if len(normalized) == 0 {
		return nil
	}
	encoded, err := encodeStrings(normalized)
	if err != nil {
		return fmt.Errorf("failed to encode times: %w", err)
	}

	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn, sqliteUpsertSchedule, &sqlitex.ExecOptions{
		Args: []any{masterID, date, encoded},
	})
	if isSQLiteConstraint(err, sqlite.ResultConstraintForeignKey) {
		return ErrMasterNotFound
	}
	if err != nil {
		return fmt.Errorf("スケジュールの公開に失敗しました: %w", err)
	}
	return nil
}

// Merge は既存スケジュールに未登録の時刻を追加する。
// 読み取りから書き込みまでをIMMEDIATEトランザクションで行い、同時マージを直列化する。
func (r *SQLiteScheduleRepo) Merge(ctx context.Context, masterID, date string, times []string) (err error) {
	if len(model.NormalizeTimes(times)) == 0 {
		return nil
	}

	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer endFn(&err)

	var existing []string
	err = sqlitex.Execute(conn,
		`SELECT times FROM schedule_entries WHERE master_id = ? AND date = ?`,
		&sqlitex.ExecOptions{
			Args: []any{masterID, date},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				decoded, err := decodeStrings(stmt.ColumnText(0))
				if err != nil {
					return err
				}
				existing = decoded
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("既存スケジュールの取得に失敗しました: %w", err)
	}

	encoded, err := encodeStrings(model.MergeTimes(existing, times))
	if err != nil {
		return fmt.Errorf("failed to encode times: %w", err)
	}

	err = sqlitex.Execute(conn, sqliteUpsertSchedule, &sqlitex.ExecOptions{
		Args: []any{masterID, date, encoded},
	})
	if isSQLiteConstraint(err, sqlite.ResultConstraintForeignKey) {
		return ErrMasterNotFound
	}
	if err != nil {
		return fmt.Errorf("スケジュールのマージに失敗しました: %w", err)
	}
	return nil
}

// ListByMaster はマスターのスケジュールを日付順に返す。
func (r *SQLiteScheduleRepo) ListByMaster(ctx context.Context, masterID string) ([]model.ScheduleEntry, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	return sqliteListSchedule(conn, masterID)
}

// compile-time interface check
var _ ScheduleRepository = (*SQLiteScheduleRepo)(nil)
