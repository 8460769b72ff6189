package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tunebox/internal/model"
)

// PostgresFileRepo はPostgreSQLを使用したファイルメタデータリポジトリ。
type PostgresFileRepo struct {
	db *sql.DB
}

// NewPostgresFileRepo はPostgresFileRepoを生成する。
func NewPostgresFileRepo(db *sql.DB) *PostgresFileRepo {
	return &PostgresFileRepo{db: db}
}

// Create はファイルレコードを作成する。
func (r *PostgresFileRepo) Create(ctx context.Context, file *model.File) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (id, user_id, name, path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		file.ID, file.UserID, file.Name, file.Path, file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	return nil
}

// ListByUserID は指定ユーザーの所有ファイル一覧を作成日時昇順で返す。
func (r *PostgresFileRepo) ListByUserID(ctx context.Context, userID string) ([]*model.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, path, created_at, updated_at
		 FROM files WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*model.File
	for rows.Next() {
		file := &model.File{}
		if err := rows.Scan(&file.ID, &file.UserID, &file.Name, &file.Path,
			&file.CreatedAt, &file.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file rows: %w", err)
	}

	return files, nil
}

// DeleteByID は指定IDのファイルレコードを削除する。
// 対象が存在しない場合もエラーにしない（補償処理から冪等に呼べるようにするため）。
func (r *PostgresFileRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM files WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FileRepository = (*PostgresFileRepo)(nil)
