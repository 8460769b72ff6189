package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/tunebox/internal/model"
)

// TokenType はトークンの用途を表す型識別子。
type TokenType string

const (
	// TokenTypeAccess はAPIアクセス用の短命トークンを示す。
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh はアクセストークン再発行用の長命トークンを示す。
	TokenTypeRefresh TokenType = "refresh"
)

// Claims はトークンに埋め込むクレームセット。
// typeクレームにより、リフレッシュトークンをアクセストークンとして
// 使い回すこと（およびその逆）を防ぐ。
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Type   string `json:"type"`
}

// TokenCodec は署名付き期限付きトークンの発行・検証インターフェース。
type TokenCodec interface {
	// Issue はsubjectとトークン種別を埋め込んだ署名付きトークンを発行する。
	Issue(subject string, tokenType TokenType, ttl time.Duration) (string, error)
	// Verify はトークンを検証し、subject（ユーザーID）を返す。
	// 署名不正・期限切れ・種別不一致はすべて同一のエラーとして扱う。
	Verify(tokenString string, expected TokenType) (string, error)
}

// HMACTokenCodec はHS256署名によるTokenCodecの実装。
// 状態を持たず、並行呼び出しに対して安全。
type HMACTokenCodec struct {
	secret []byte
}

// NewHMACTokenCodec はHMACTokenCodecを生成する。
func NewHMACTokenCodec(secret string) *HMACTokenCodec {
	return &HMACTokenCodec{secret: []byte(secret)}
}

// Issue は署名付きトークンを発行する。
func (c *HMACTokenCodec) Issue(subject string, tokenType TokenType, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		UserID: subject,
		Type:   string(tokenType),
	})

	return token.SignedString(c.secret)
}

// Verify はトークンの署名・有効期限・種別を検証し、subjectを返す。
// いかなる検証失敗も区別せずInvalidCredentialsとして返す。
// 失敗理由を返さないのは、呼び出し側経由でトークン検証のオラクルに
// ならないようにするため。
func (c *HMACTokenCodec) Verify(tokenString string, expected TokenType) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", model.NewInvalidCredentialsError()
	}

	if claims.Type == "" || claims.Type != string(expected) {
		return "", model.NewInvalidCredentialsError()
	}
	if claims.UserID == "" {
		return "", model.NewInvalidCredentialsError()
	}

	return claims.UserID, nil
}

// compile-time interface check
var _ TokenCodec = (*HMACTokenCodec)(nil)
