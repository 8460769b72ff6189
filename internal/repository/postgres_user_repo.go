package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/tunebox/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, yandex_id, username, first_name, last_name, email, is_admin, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.YandexID, &user.Username, &user.FirstName, &user.LastName,
		&user.Email, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByYandexID はYandex IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByYandexID(ctx context.Context, yandexID string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, yandex_id, username, first_name, last_name, email, is_admin, created_at, updated_at
		 FROM users WHERE yandex_id = $1`,
		yandexID,
	).Scan(&user.ID, &user.YandexID, &user.Username, &user.FirstName, &user.LastName,
		&user.Email, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by yandex ID: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
// yandex_idとemailの一意性はDB制約で担保され、違反時はエラーを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, yandex_id, username, first_name, last_name, email, is_admin, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.YandexID, user.Username, user.FirstName, user.LastName,
		user.Email, user.IsAdmin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Update はユーザー情報を部分更新し、更新後のユーザーを返す。
// COALESCEにより、nilフィールドは既存の値を維持する。
// is_adminは作成時にのみ決定されるため、更新対象に含まない。
func (r *PostgresUserRepo) Update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET username   = COALESCE($2, username),
		     first_name = COALESCE($3, first_name),
		     last_name  = COALESCE($4, last_name),
		     updated_at = $5
		 WHERE id = $1
		 RETURNING id, yandex_id, username, first_name, last_name, email, is_admin, created_at, updated_at`,
		id, update.Username, update.FirstName, update.LastName, time.Now(),
	).Scan(&user.ID, &user.YandexID, &user.Username, &user.FirstName, &user.LastName,
		&user.Email, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, model.NewUserNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 所有ファイルのレコードはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError()
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
