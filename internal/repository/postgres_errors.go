package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// 制約名はマイグレーション（000001_create_salon_tables）と一致させる。
const (
	constraintMasterOwnerUnique = "masters_owner_id_key"
	constraintBookingSlotUnique = "bookings_slot_key"
)

// queryer は*sql.DBと*sql.Txの共通部分。
// 通常の読み取りとスナップショット用トランザクション内の読み取りでスキャン処理を共有する。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pqErrorCode はエラーがPostgreSQLのエラーであればSQLSTATEと制約名を返す。
func pqErrorCode(err error) (code string, constraint string, ok bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", "", false
	}
	return string(pqErr.Code), pqErr.Constraint, true
}

func isUniqueViolation(err error, constraint string) bool {
	code, c, ok := pqErrorCode(err)
	return ok && code == pqUniqueViolation && (constraint == "" || c == constraint)
}

func isForeignKeyViolation(err error) bool {
	code, _, ok := pqErrorCode(err)
	return ok && code == pqForeignKeyViolation
}

// nullString は空文字列をNULLとして扱うsql.NullStringを返す。
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringPtr はsql.NullStringを*stringに変換する。NULLの場合はnil。
func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
