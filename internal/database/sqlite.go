package database

import (
	_ "embed"
	"fmt"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteConfig はSQLiteコネクションプールの設定。
type SQLiteConfig struct {
	// Path はデータベースファイルのパス。必須。
	Path string

	// PoolSize はプール内のコネクション数。0以下の場合は max(NumCPU, 4)。
	PoolSize int

	// Logger はプールのオープンを記録する。nilの場合は出力しない。
	Logger *slog.Logger
}

// sqlitePragmas は全コネクションに適用するPRAGMA。
// 予約とスケジュールはマスターへの外部キーを持つため foreign_keys は有効にする。
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA cache_size=-8192",
	"PRAGMA temp_store=MEMORY",
}

// OpenSQLite はSQLiteコネクションプールを開く。
// 各コネクションの初回利用時にPRAGMAを適用し、スキーマを作成する。
// 呼び出し側はClose()でプールを閉じること。
func OpenSQLite(cfg SQLiteConfig) (*sqlitex.Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite pool opened",
		slog.String("path", cfg.Path),
		slog.Int("pool_size", poolSize),
	)

	return pool, nil
}

func prepareSQLiteConn(conn *sqlite.Conn) error {
	for _, pragma := range sqlitePragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return nil
}
