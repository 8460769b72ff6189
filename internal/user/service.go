// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/tunebox/internal/model"
	"github.com/hitoshi/tunebox/internal/policy"
	"github.com/hitoshi/tunebox/internal/repository"
	"github.com/hitoshi/tunebox/internal/storage"
)

// Service はユーザー管理のサービス層。
// プロフィール取得・更新・削除のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	store    storage.FileStore
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, store storage.FileStore) *Service {
	return &Service{
		userRepo: userRepo,
		store:    store,
	}
}

// Get は指定IDのユーザーを取得する。
// 認証済みであれば誰のプロフィールでも閲覧できる（現行仕様）。
func (s *Service) Get(ctx context.Context, actor *model.User, targetID string) (*model.User, error) {
	if !policy.CanReadUser(actor, targetID) {
		return nil, model.NewForbiddenError()
	}

	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	return target, nil
}

// Update はユーザー情報を部分更新する。
// 本人または管理者のみ許可する。指定されたフィールドのみを更新し、
// is_adminは変更しない。
func (s *Service) Update(ctx context.Context, actor *model.User, targetID string, update model.UserUpdate) (*model.User, error) {
	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	if !policy.CanUpdateUser(actor, target.ID) {
		return nil, model.NewForbiddenError()
	}

	updated, err := s.userRepo.Update(ctx, targetID, update)
	if err != nil {
		return nil, err
	}

	slog.Info("user updated",
		slog.String("user_id", targetID),
		slog.String("actor_id", actor.ID),
	)

	return updated, nil
}

// Delete はユーザーを削除する。管理者のみ許可する。
// 削除順序: ディスク上の所有ファイル → usersレコード（filesレコードはCASCADE削除）
// 存在確認を権限確認より先に行う（現行仕様を維持）。
func (s *Service) Delete(ctx context.Context, actor *model.User, targetID string) error {
	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError()
	}

	if !policy.CanDeleteUser(actor) {
		return model.NewForbiddenError()
	}

	// 1. ディスク上の所有ファイルを削除
	if err := s.store.RemoveUserDir(targetID); err != nil {
		return fmt.Errorf("failed to remove user files: %w", err)
	}

	// 2. ユーザーレコードを削除（filesレコードはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, targetID); err != nil {
		return err
	}

	slog.Info("user deleted",
		slog.String("user_id", targetID),
		slog.String("actor_id", actor.ID),
	)

	return nil
}
