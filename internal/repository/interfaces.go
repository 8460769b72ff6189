// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/tunebox/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByYandexID はYandex IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByYandexID(ctx context.Context, yandexID string) (*model.User, error)

	// Create はユーザーを作成する。
	// yandex_idとemailの一意性はDB制約で担保され、違反時はエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザー情報を部分更新し、更新後のユーザーを返す。
	// updateのnilフィールドは変更しない。
	Update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 所有ファイルのレコードはCASCADE削除される。
	// 対象が存在しない場合はmodel.NewUserNotFoundError()を返す。
	DeleteByID(ctx context.Context, id string) error
}

// FileRepository はファイルメタデータの永続化インターフェース。
type FileRepository interface {
	// Create はファイルレコードを作成する。
	Create(ctx context.Context, file *model.File) error

	// ListByUserID は指定ユーザーの所有ファイル一覧を作成日時昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.File, error)

	// DeleteByID は指定IDのファイルレコードを削除する。
	// アップロード失敗時の補償処理で使用する。
	DeleteByID(ctx context.Context, id string) error
}
