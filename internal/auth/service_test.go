package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/tunebox/internal/model"
	"github.com/hitoshi/tunebox/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByYandexIDFn func(ctx context.Context, yandexID string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByYandexID(ctx context.Context, yandexID string) (*model.User, error) {
	if m.findByYandexIDFn != nil {
		return m.findByYandexIDFn(ctx, yandexID)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, _ string, _ model.UserUpdate) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockOAuthProvider struct {
	loginURLFn     func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*ExternalIdentity, error)
}

func (m *mockOAuthProvider) LoginURL(state string) string {
	if m.loginURLFn != nil {
		return m.loginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

func newTestService(oauth OAuthProvider, userRepo repository.UserRepository, adminEmails []string) *Service {
	return NewService(oauth, NewHMACTokenCodec(testSecret), userRepo, ServiceConfig{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		AdminEmails:     adminEmails,
	})
}

// --- テスト ---

func TestLoginURL_DelegatesToProvider(t *testing.T) {
	provider := &mockOAuthProvider{
		loginURLFn: func(state string) string {
			return "https://oauth.yandex.ru/authorize?state=" + state
		},
	}
	svc := newTestService(provider, &mockUserRepo{}, nil)

	url := svc.LoginURL("test-state")

	expected := "https://oauth.yandex.ru/authorize?state=test-state"
	if url != expected {
		t.Errorf("LoginURL() = %q, want %q", url, expected)
	}
}

func TestHandleCallback_NewUser_CreatesUserAndIssuesPair(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*ExternalIdentity, error) {
			return &ExternalIdentity{
				YandexID:    "yandex-123",
				Email:       "A@B.com",
				FirstName:   "Taro",
				LastName:    "Yamada",
				DisplayName: "taro",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}

	svc := newTestService(provider, userRepo, []string{"a@b.com"})

	pair, err := svc.HandleCallback(ctx, "test-code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Email != "a@b.com" {
		t.Errorf("Email = %q, want %q (lowercased)", createdUser.Email, "a@b.com")
	}
	if !createdUser.IsAdmin {
		t.Error("expected IsAdmin = true for allow-listed email (case-insensitive)")
	}
	if createdUser.YandexID != "yandex-123" {
		t.Errorf("YandexID = %q, want %q", createdUser.YandexID, "yandex-123")
	}
	if createdUser.Username != "taro" {
		t.Errorf("Username = %q, want %q", createdUser.Username, "taro")
	}
	if createdUser.ID == "" {
		t.Error("expected non-empty generated user ID")
	}

	// 発行されたトークンが正しい種別・主体で検証できること
	codec := NewHMACTokenCodec(testSecret)
	subject, err := codec.Verify(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("access token verification failed: %v", err)
	}
	if subject != createdUser.ID {
		t.Errorf("access token subject = %q, want %q", subject, createdUser.ID)
	}
	subject, err = codec.Verify(pair.RefreshToken, TokenTypeRefresh)
	if err != nil {
		t.Fatalf("refresh token verification failed: %v", err)
	}
	if subject != createdUser.ID {
		t.Errorf("refresh token subject = %q, want %q", subject, createdUser.ID)
	}
}

func TestHandleCallback_NonAdminEmail_CreatesRegularUser(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*ExternalIdentity, error) {
			return &ExternalIdentity{
				YandexID:    "yandex-456",
				Email:       "user@example.com",
				DisplayName: "user",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}

	svc := newTestService(provider, userRepo, []string{"admin@example.com"})

	if _, err := svc.HandleCallback(ctx, "test-code"); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.IsAdmin {
		t.Error("expected IsAdmin = false for non allow-listed email")
	}
}

func TestHandleCallback_ExistingUser_ReusesWithoutCreate(t *testing.T) {
	ctx := context.Background()

	existing := &model.User{
		ID:       "user-1",
		YandexID: "yandex-123",
		Email:    "a@b.com",
	}

	createCalled := false

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*ExternalIdentity, error) {
			// 再ログイン時にプロフィールが変わっていても再同期しない
			return &ExternalIdentity{
				YandexID:    "yandex-123",
				Email:       "changed@b.com",
				DisplayName: "changed",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		findByYandexIDFn: func(ctx context.Context, yandexID string) (*model.User, error) {
			if yandexID != "yandex-123" {
				t.Errorf("yandexID = %q, want %q", yandexID, "yandex-123")
			}
			return existing, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			createCalled = true
			return nil
		},
	}

	svc := newTestService(provider, userRepo, nil)

	pair, err := svc.HandleCallback(ctx, "test-code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if createCalled {
		t.Error("expected no user creation for existing yandex id")
	}

	codec := NewHMACTokenCodec(testSecret)
	subject, err := codec.Verify(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("access token verification failed: %v", err)
	}
	if subject != "user-1" {
		t.Errorf("access token subject = %q, want %q", subject, "user-1")
	}
}

func TestHandleCallback_ExchangeFails_NoUserCreated(t *testing.T) {
	ctx := context.Background()

	createCalled := false

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*ExternalIdentity, error) {
			return nil, errors.New("provider rejected the code")
		},
	}

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createCalled = true
			return nil
		},
	}

	svc := newTestService(provider, userRepo, nil)

	_, err := svc.HandleCallback(ctx, "bad-code")
	if err == nil {
		t.Fatal("expected error for failed exchange")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeIdentityVerifyFailed {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeIdentityVerifyFailed)
	}

	if createCalled {
		t.Error("expected no user creation when exchange fails")
	}
}

func TestHandleCallback_CreateFails_SurfacesError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*ExternalIdentity, error) {
			return &ExternalIdentity{YandexID: "yandex-123", Email: "a@b.com"}, nil
		},
	}

	// 一意制約違反などの作成失敗はサイレントに握りつぶさない
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return errors.New("unique constraint violation")
		},
	}

	svc := newTestService(provider, userRepo, nil)

	if _, err := svc.HandleCallback(ctx, "test-code"); err == nil {
		t.Fatal("expected error when user creation fails")
	}
}

func TestRefresh_ValidToken_IssuesNewAccessToken(t *testing.T) {
	ctx := context.Background()
	codec := NewHMACTokenCodec(testSecret)

	refreshToken, err := codec.Issue("user-1", TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				t.Errorf("id = %q, want %q", id, "user-1")
			}
			return &model.User{ID: "user-1"}, nil
		},
	}

	svc := newTestService(&mockOAuthProvider{}, userRepo, nil)

	accessToken, err := svc.Refresh(ctx, refreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	subject, err := codec.Verify(accessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("issued access token verification failed: %v", err)
	}
	if subject != "user-1" {
		t.Errorf("subject = %q, want %q", subject, "user-1")
	}
}

func TestRefresh_AccessTokenPresented_Rejected(t *testing.T) {
	ctx := context.Background()
	codec := NewHMACTokenCodec(testSecret)

	// アクセストークンをリフレッシュとして使い回せないこと
	accessToken, err := codec.Issue("user-1", TokenTypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, nil)

	_, err = svc.Refresh(ctx, accessToken)
	if err == nil {
		t.Fatal("expected rejection for access token presented as refresh")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRefreshToken {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRefreshToken)
	}
}

func TestRefresh_MalformedToken_Rejected(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, nil)

	_, err := svc.Refresh(ctx, "not-a-token")
	if err == nil {
		t.Fatal("expected rejection for malformed token")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRefreshToken {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRefreshToken)
	}
}

func TestRefresh_UserDeleted_ReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	codec := NewHMACTokenCodec(testSecret)

	refreshToken, err := codec.Issue("deleted-user", TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// トークン発行後にユーザーが削除されたケース
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	svc := newTestService(&mockOAuthProvider{}, userRepo, nil)

	_, err = svc.Refresh(ctx, refreshToken)
	if err == nil {
		t.Fatal("expected error for deleted user")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestIsAdminEmail_CaseInsensitive(t *testing.T) {
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, []string{"admin@x.com"})

	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{name: "exact match", email: "admin@x.com", want: true},
		{name: "uppercase local part", email: "Admin@X.com", want: true},
		{name: "all uppercase", email: "ADMIN@X.COM", want: true},
		{name: "no match", email: "other@x.com", want: false},
		{name: "empty", email: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.isAdminEmail(tt.email); got != tt.want {
				t.Errorf("isAdminEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}
