package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// PostgreSQLStorage implements the VersionedStore interface using a PostgreSQL blob table
// PostgreSQLのBLOBテーブルを使用したVersionedStoreの実装
type PostgreSQLStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ inventory.VersionedStore = (*PostgreSQLStorage)(nil)

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
// 新しいPostgreSQLストレージインスタンスを作成
func NewPostgreSQLStorage(dsn string, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStorage{
		db:     db,
		logger: logger,
	}, nil
}

// Get retrieves a blob by name
// 名前でBLOBを取得
func (s *PostgreSQLStorage) Get(ctx context.Context, name string) ([]byte, bool, error) {
	data, _, found, err := s.GetVersioned(ctx, name)
	return data, found, err
}

// GetVersioned retrieves a blob together with its row version
// BLOBとバージョンを取得
func (s *PostgreSQLStorage) GetVersioned(ctx context.Context, name string) ([]byte, string, bool, error) {
	query := `SELECT data, version FROM drum_blobs WHERE name = $1`

	var (
		data    []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, query, name).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("BLOB取得に失敗しました: %w", err)
	}

	return data, strconv.FormatInt(version, 10), true, nil
}

// Put writes a blob unconditionally
// BLOBを無条件に保存
func (s *PostgreSQLStorage) Put(ctx context.Context, name string, data []byte) error {
	query := `
		INSERT INTO drum_blobs (name, data, version, updated_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (name) DO UPDATE
		SET data = EXCLUDED.data, version = drum_blobs.version + 1, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, name, data, time.Now()); err != nil {
		return fmt.Errorf("BLOB保存に失敗しました: %w", err)
	}
	return nil
}

// PutIfVersion writes a blob only if its row is still at version.
// An empty version inserts a new row and fails when one already exists.
// バージョンが一致する場合のみBLOBを保存（楽観的ロック）
func (s *PostgreSQLStorage) PutIfVersion(ctx context.Context, name string, data []byte, version string) (string, error) {
	if version == "" {
		query := `INSERT INTO drum_blobs (name, data, version, updated_at) VALUES ($1, $2, 1, $3)`
		if _, err := s.db.ExecContext(ctx, query, name, data, time.Now()); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return "", inventory.ErrVersionMismatch
			}
			return "", fmt.Errorf("BLOB作成に失敗しました: %w", err)
		}
		return "1", nil
	}

	expected, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return "", inventory.ErrVersionMismatch
	}

	query := `
		UPDATE drum_blobs
		SET data = $2, version = version + 1, updated_at = $3
		WHERE name = $1 AND version = $4
		RETURNING version`

	var next int64
	err = s.db.QueryRowContext(ctx, query, name, data, time.Now(), expected).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("BLOBのバージョンが一致しません",
			zap.String("name", name),
			zap.Int64("expected", expected),
		)
		return "", inventory.ErrVersionMismatch
	}
	if err != nil {
		return "", fmt.Errorf("BLOB更新に失敗しました: %w", err)
	}

	return strconv.FormatInt(next, 10), nil
}

// Ping checks database connectivity
// データベース接続をチェック
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}
