// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, file, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeIdentityVerifyFailed = "IDENTITY_VERIFICATION_FAILED"
	ErrCodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeFileTypeNotAllowed   = "FILE_TYPE_NOT_ALLOWED"
	ErrCodeFileTooLarge         = "FILE_TOO_LARGE"
	ErrCodeUploadFailed         = "UPLOAD_FAILED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
)

// NewInvalidCredentialsError は認証情報が欠落・不正・期限切れの場合のエラーを生成する。
// トークンが拒否された理由は呼び出し側に区別して返さない（オラクル化の防止）。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "認証情報が無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewIdentityVerifyFailedError は外部IdPでの本人確認に失敗した場合のエラーを生成する。
func NewIdentityVerifyFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeIdentityVerifyFailed,
		Message:  fmt.Sprintf("外部プロバイダーでの本人確認に失敗しました: %s", reason),
		Category: "auth",
		Action:   "最初からログインをやり直してください。",
	}
}

// NewInvalidRefreshTokenError はリフレッシュトークンが無効な場合のエラーを生成する。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "リフレッシュトークンが無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewForbiddenError は認証済みだが権限がない操作のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分のリソースに対してのみ操作できます。管理者権限が必要な場合は管理者に連絡してください。",
	}
}

// NewFileTypeNotAllowedError は許可されていないファイル形式のエラーを生成する。
// detectedには実際のコンテンツから判定したMIMEタイプを渡す。
func NewFileTypeNotAllowedError(detected string) *APIError {
	return &APIError{
		Code:     ErrCodeFileTypeNotAllowed,
		Message:  fmt.Sprintf("許可されていないファイル形式です: %s", detected),
		Category: "file",
		Action:   "対応している音声ファイル形式でアップロードしてください。",
	}
}

// NewFileTooLargeError はファイルサイズ上限超過のエラーを生成する。
func NewFileTooLargeError(maxSize int64) *APIError {
	return &APIError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("ファイルサイズが上限（%dバイト）を超えています。", maxSize),
		Category: "file",
		Action:   "ファイルサイズを小さくしてから再度アップロードしてください。",
	}
}

// NewUploadFailedError はアップロード処理中の保存失敗エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "ファイルのアップロード中にエラーが発生しました。",
		Category: "file",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRequestError はリクエスト形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト形式を確認してください。",
	}
}
