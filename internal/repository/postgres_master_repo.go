package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/salonbook/internal/model"
)

// PostgresMasterRepo はPostgreSQLを使用したマスターリポジトリ。
type PostgresMasterRepo struct {
	db *sql.DB
}

// NewPostgresMasterRepo はPostgresMasterRepoを生成する。
func NewPostgresMasterRepo(db *sql.DB) *PostgresMasterRepo {
	return &PostgresMasterRepo{db: db}
}

const masterColumns = `id, owner_id, name, photo_url, services, created_at`

// Create はマスターを作成する。
// owner_idのUNIQUE制約違反はErrOwnerConflictに変換する。
func (r *PostgresMasterRepo) Create(ctx context.Context, master *model.Master) error {
	services := master.Services
	if services == nil {
		services = []string{}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO masters (id, owner_id, name, photo_url, services, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		master.ID, nullString(master.OwnerID), master.Name, master.PhotoURL,
		pq.Array(services), master.CreatedAt,
	)
	if isUniqueViolation(err, constraintMasterOwnerUnique) {
		return ErrOwnerConflict
	}
	if err != nil {
		return fmt.Errorf("マスターの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのマスターを取得する。見つからない場合はnilを返す。
func (r *PostgresMasterRepo) FindByID(ctx context.Context, id string) (*model.Master, error) {
	return findMasterByID(ctx, r.db, id)
}

// FindByOwner はowner_idに紐付くマスターを取得する。見つからない場合はnilを返す。
func (r *PostgresMasterRepo) FindByOwner(ctx context.Context, ownerID string) (*model.Master, error) {
	master, err := scanMaster(r.db.QueryRowContext(ctx,
		`SELECT `+masterColumns+` FROM masters WHERE owner_id = $1`,
		ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("owner_idによるマスターの検索に失敗しました: %w", err)
	}
	return master, nil
}

// List は全マスターを登録順に返す。
func (r *PostgresMasterRepo) List(ctx context.Context) ([]*model.Master, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+masterColumns+` FROM masters ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("マスター一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	masters := []*model.Master{}
	for rows.Next() {
		master, err := scanMaster(rows)
		if err != nil {
			return nil, fmt.Errorf("マスター行の読み取りに失敗しました: %w", err)
		}
		masters = append(masters, master)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マスター一覧の走査に失敗しました: %w", err)
	}
	return masters, nil
}

func findMasterByID(ctx context.Context, q queryer, id string) (*model.Master, error) {
	master, err := scanMaster(q.QueryRowContext(ctx,
		`SELECT `+masterColumns+` FROM masters WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("マスターの取得に失敗しました: %w", err)
	}
	return master, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaster(row rowScanner) (*model.Master, error) {
	master := &model.Master{}
	var ownerID sql.NullString
	var services pq.StringArray
	if err := row.Scan(&master.ID, &ownerID, &master.Name, &master.PhotoURL, &services, &master.CreatedAt); err != nil {
		return nil, err
	}
	master.OwnerID = nullStringPtr(ownerID)
	master.Services = []string(services)
	if master.Services == nil {
		master.Services = []string{}
	}
	return master, nil
}

// compile-time interface check
var _ MasterRepository = (*PostgresMasterRepo)(nil)
