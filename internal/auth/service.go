// Package auth はOAuth認証フローとトークンの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/tunebox/internal/model"
	"github.com/hitoshi/tunebox/internal/repository"
)

// ExternalIdentity はOAuthプロバイダーから取得したユーザー情報を表す。
// ログイン試行ごとに生成される一時データで、永続化はしない。
type ExternalIdentity struct {
	YandexID    string
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// LoginURL はOAuth認証URLを生成する。
	LoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error)
}

// TokenPair はアクセストークンとリフレッシュトークンの組。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// AdminEmails は管理者として扱うメールアドレスの許可リスト。
	// 照合は大文字小文字を区別しない。
	AdminEmails []string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	codec    TokenCodec
	userRepo repository.UserRepository
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	codec TokenCodec,
	userRepo repository.UserRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:    oauth,
		codec:    codec,
		userRepo: userRepo,
		config:   config,
	}
}

// LoginURL はOAuth認証URLを生成する。
func (s *Service) LoginURL(state string) string {
	return s.oauth.LoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、トークンペアを発行する。
// 未登録ユーザーの場合はusersレコードを自動作成する。
// 登録済みユーザーの場合は既存レコードをそのまま使用し、
// プロフィールの再同期は行わない（意図した仕様）。
func (s *Service) HandleCallback(ctx context.Context, code string) (*TokenPair, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	identity, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		slog.Warn("oauth code exchange failed", slog.String("error", err.Error()))
		return nil, model.NewIdentityVerifyFailedError(err.Error())
	}

	// 2. Yandex IDで既存ユーザーを検索
	user, err := s.userRepo.FindByYandexID(ctx, identity.YandexID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by yandex id: %w", err)
	}

	if user == nil {
		// 3. 新規ユーザーを作成
		// メールは小文字に正規化し、管理者フラグは許可リスト照合で作成時に一度だけ決定する
		now := time.Now()
		user = &model.User{
			ID:        uuid.New().String(),
			YandexID:  identity.YandexID,
			Username:  identity.DisplayName,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
			Email:     strings.ToLower(identity.Email),
			IsAdmin:   s.isAdminEmail(identity.Email),
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("email", user.Email),
			slog.Bool("is_admin", user.IsAdmin),
		)
	} else {
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
		)
	}

	// 4. トークンペアを発行
	return s.issueTokenPair(user.ID)
}

// Refresh はリフレッシュトークンを検証し、新しいアクセストークンを発行する。
// リフレッシュトークンのローテーションは行わない。
// ユーザー削除後も発行済みリフレッシュトークンは期限まで形式上有効なため、
// ここでユーザーの存在を必ず確認する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.codec.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", model.NewInvalidRefreshTokenError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.NewUserNotFoundError()
	}

	accessToken, err := s.codec.Issue(user.ID, TokenTypeAccess, s.config.AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}

	return accessToken, nil
}

// issueTokenPair はユーザーIDを主体とするトークンペアを発行する。
func (s *Service) issueTokenPair(userID string) (*TokenPair, error) {
	accessToken, err := s.codec.Issue(userID, TokenTypeAccess, s.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.codec.Issue(userID, TokenTypeRefresh, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// isAdminEmail は管理者メール許可リストとの照合を行う。
// 大文字小文字を区別しない。
func (s *Service) isAdminEmail(email string) bool {
	lowered := strings.ToLower(email)
	for _, admin := range s.config.AdminEmails {
		if strings.ToLower(admin) == lowered {
			return true
		}
	}
	return false
}
