package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/salonbook/internal/model"
)

// PostgresScheduleRepo はPostgreSQLを使用したスケジュールリポジトリ。
type PostgresScheduleRepo struct {
	db *sql.DB
}

// NewPostgresScheduleRepo はPostgresScheduleRepoを生成する。
func NewPostgresScheduleRepo(db *sql.DB) *PostgresScheduleRepo {
	return &PostgresScheduleRepo{db: db}
}

// Publish は (masterID, date) のスケジュールをUPSERTする。
// PRIMARY KEY(master_id, date)を利用したINSERT ON CONFLICTで実装する。
func (r *PostgresScheduleRepo) Publish(ctx context.Context, masterID, date string, times []string) error {
	normalized := model.NormalizeTimes(times)
	if len(normalized) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schedule_entries (master_id, date, times, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (master_id, date) DO UPDATE SET
		     times = EXCLUDED.times,
		     updated_at = EXCLUDED.updated_at`,
		masterID, date, pq.Array(normalized),
	)
	if isForeignKeyViolation(err) {
		return ErrMasterNotFound
	}
	if err != nil {
		return fmt.Errorf("スケジュールの公開に失敗しました: %w", err)
	}
	return nil
}

// Merge は既存スケジュールに未登録の時刻を追加する。
// 行をFOR UPDATEでロックしてから書き換えるため、同一日付への同時マージで時刻が失われない。
func (r *PostgresScheduleRepo) Merge(ctx context.Context, masterID, date string, times []string) error {
	if len(model.NormalizeTimes(times)) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 行が無ければ空で作っておき、以降のSELECT FOR UPDATEで必ずロックを取れるようにする
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schedule_entries (master_id, date, times, updated_at)
		 VALUES ($1, $2, '{}', now())
		 ON CONFLICT (master_id, date) DO NOTHING`,
		masterID, date,
	)
	if isForeignKeyViolation(err) {
		return ErrMasterNotFound
	}
	if err != nil {
		return fmt.Errorf("スケジュール行の確保に失敗しました: %w", err)
	}

	var existing pq.StringArray
	err = tx.QueryRowContext(ctx,
		`SELECT times FROM schedule_entries WHERE master_id = $1 AND date = $2 FOR UPDATE`,
		masterID, date,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("既存スケジュールの取得に失敗しました: %w", err)
	}

	merged := model.MergeTimes(existing, times)
	_, err = tx.ExecContext(ctx,
		`UPDATE schedule_entries SET times = $3, updated_at = now()
		 WHERE master_id = $1 AND date = $2`,
		masterID, date, pq.Array(merged),
	)
	if err != nil {
		return fmt.Errorf("スケジュールのマージに失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByMaster はマスターのスケジュールを日付順に返す。
func (r *PostgresScheduleRepo) ListByMaster(ctx context.Context, masterID string) ([]model.ScheduleEntry, error) {
	return listSchedule(ctx, r.db, masterID)
}

func listSchedule(ctx context.Context, q queryer, masterID string) ([]model.ScheduleEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT master_id, date, times FROM schedule_entries
		 WHERE master_id = $1 AND cardinality(times) > 0
		 ORDER BY date ASC`,
		masterID,
	)
	if err != nil {
		return nil, fmt.Errorf("スケジュール一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	entries := []model.ScheduleEntry{}
	for rows.Next() {
		var entry model.ScheduleEntry
		var times pq.StringArray
		if err := rows.Scan(&entry.MasterID, &entry.Date, &times); err != nil {
			return nil, fmt.Errorf("スケジュール行の読み取りに失敗しました: %w", err)
		}
		entry.Times = []string(times)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スケジュール一覧の走査に失敗しました: %w", err)
	}
	return entries, nil
}

// compile-time interface check
var _ ScheduleRepository = (*PostgresScheduleRepo)(nil)
