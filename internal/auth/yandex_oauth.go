package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultYandexAuthURL     = "https://oauth.yandex.ru/authorize"
	defaultYandexTokenURL    = "https://oauth.yandex.ru/token"
	defaultYandexUserInfoURL = "https://login.yandex.ru/info"
)

// YandexOAuthConfig はYandex OAuthプロバイダーの設定。
type YandexOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// YandexOAuthProvider はYandex OAuth 2.0による認証を提供する。
type YandexOAuthProvider struct {
	config YandexOAuthConfig
}

// NewYandexOAuthProvider はYandexOAuthProviderを生成する。
func NewYandexOAuthProvider(config YandexOAuthConfig) *YandexOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultYandexAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultYandexTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultYandexUserInfoURL
	}
	return &YandexOAuthProvider{config: config}
}

// LoginURL はYandex OAuthの認証URLを生成する。
func (p *YandexOAuthProvider) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// yandexTokenResponse はYandexのトークンエンドポイントのレスポンス。
type yandexTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// yandexUserInfo はYandexのユーザー情報エンドポイントのレスポンス。
type yandexUserInfo struct {
	ID           string `json:"id"`
	DefaultEmail string `json:"default_email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DisplayName  string `json:"display_name"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *YandexOAuthProvider) ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error) {
	// 1. 認可コードをアクセストークンに交換
	tokenResp, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// 2. アクセストークンでユーザー情報を取得
	userInfo, err := p.fetchUserInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	return &ExternalIdentity{
		YandexID:    userInfo.ID,
		Email:       userInfo.DefaultEmail,
		FirstName:   userInfo.FirstName,
		LastName:    userInfo.LastName,
		DisplayName: userInfo.DisplayName,
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *YandexOAuthProvider) exchangeToken(ctx context.Context, code string) (*yandexTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp yandexTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, nil
}

// fetchUserInfo はアクセストークンでYandexのユーザー情報を取得する。
// Yandexのユーザー情報APIはAuthorizationヘッダーにOAuthスキームを要求する。
func (p *YandexOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*yandexUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL+"?format=json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo yandexUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userInfo.ID == "" {
		return nil, fmt.Errorf("empty id in user info response")
	}

	return &userInfo, nil
}

// compile-time interface check
var _ OAuthProvider = (*YandexOAuthProvider)(nil)
