package repository

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/hitoshi/salonbook/internal/model"
)

// SQLiteMasterRepo はSQLiteを使用したマスターリポジトリ。
type SQLiteMasterRepo struct {
	pool *sqlitex.Pool
}

const sqliteMasterColumns = `id, owner_id, name, photo_url, services, created_at`

// Create はマスターを作成する。
// owner_idのUNIQUE制約違反はErrOwnerConflictに変換する。
func (r *SQLiteMasterRepo) Create(ctx context.Context, master *model.Master) error {
	services, err := encodeStrings(master.Services)
	if err != nil {
		return fmt.Errorf("failed to encode services: %w", err)
	}

	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	var ownerID any
	if master.OwnerID != nil {
		ownerID = *master.OwnerID
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO masters (id, owner_id, name, photo_url, services, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{master.ID, ownerID, master.Name, master.PhotoURL, services, formatSQLiteTime(master.CreatedAt)},
		})
	if isSQLiteConstraint(err, sqlite.ResultConstraintUnique) {
		return ErrOwnerConflict
	}
	if err != nil {
		return fmt.Errorf("マスターの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのマスターを取得する。見つからない場合はnilを返す。
func (r *SQLiteMasterRepo) FindByID(ctx context.Context, id string) (*model.Master, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	return sqliteFindMaster(conn, `WHERE id = ?`, id)
}

// FindByOwner はowner_idに紐付くマスターを取得する。見つからない場合はnilを返す。
func (r *SQLiteMasterRepo) FindByOwner(ctx context.Context, ownerID string) (*model.Master, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	return sqliteFindMaster(conn, `WHERE owner_id = ?`, ownerID)
}

// List は全マスターを登録順に返す。
func (r *SQLiteMasterRepo) List(ctx context.Context) ([]*model.Master, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer r.pool.Put(conn)

	masters := []*model.Master{}
	err = sqlitex.Execute(conn,
		`SELECT `+sqliteMasterColumns+` FROM masters ORDER BY created_at ASC, id ASC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				master, err := scanSQLiteMaster(stmt)
				if err != nil {
					return err
				}
				masters = append(masters, master)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("マスター一覧の取得に失敗しました: %w", err)
	}
	return masters, nil
}

// sqliteFindMaster はwhere句に一致する最初のマスターを返す。
func sqliteFindMaster(conn *sqlite.Conn, where string, arg string) (*model.Master, error) {
	var master *model.Master
	err := sqlitex.Execute(conn,
		`SELECT `+sqliteMasterColumns+` FROM masters `+where+` LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{arg},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				m, err := scanSQLiteMaster(stmt)
				if err != nil {
					return err
				}
				master = m
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("マスターの取得に失敗しました: %w", err)
	}
	return master, nil
}

func scanSQLiteMaster(stmt *sqlite.Stmt) (*model.Master, error) {
	master := &model.Master{
		ID:       stmt.ColumnText(0),
		Name:     stmt.ColumnText(2),
		PhotoURL: stmt.ColumnText(3),
	}
	if stmt.ColumnType(1) != sqlite.TypeNull {
		ownerID := stmt.ColumnText(1)
		master.OwnerID = &ownerID
	}

	services, err := decodeStrings(stmt.ColumnText(4))
	if err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	master.Services = services

	createdAt, err := parseSQLiteTime(stmt.ColumnText(5))
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	master.CreatedAt = createdAt
	return master, nil
}

// compile-time interface check
var _ MasterRepository = (*SQLiteMasterRepo)(nil)
